package core

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContactFields are the fields a contact submission must carry. Both
// urlencoded and multipart bodies are accepted. A field that
// is absent from the form is an error; an empty value is accepted.
var ContactFields = []string{"name", "email"}

const maxContactFormMemory = 1 << 20

type ContactSubmission struct {
	ID    string
	Name  string
	Email string
}

func ParseContactForm(r *http.Request) (ContactSubmission, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxContactFormMemory); err != nil {
			return ContactSubmission{}, err
		}
	} else if err := r.ParseForm(); err != nil {
		return ContactSubmission{}, err
	}

	values := make(map[string]string, len(ContactFields))
	for _, field := range ContactFields {
		v, ok := r.PostForm[field]
		if !ok || len(v) == 0 {
			return ContactSubmission{}, &MissingFieldError{Field: field}
		}
		values[field] = v[0]
	}

	return ContactSubmission{
		ID:    uuid.NewString(),
		Name:  values["name"],
		Email: values["email"],
	}, nil
}
