package core

import (
	"log"
	"net/http"
)

func (s *Site) index(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, r, http.StatusOK, "index.html", map[string]interface{}{
		"PageTitle": "Home",
	})
}

func (s *Site) about(w http.ResponseWriter, r *http.Request) error {
	records, err := s.store.Records()
	if err != nil {
		return err
	}
	return s.render(w, r, http.StatusOK, "about.html", map[string]interface{}{
		"PageTitle": "About",
		"Company":   records,
	})
}

// member renders an empty record when no slug matches; the template decides
// how that looks.
func (s *Site) member(w http.ResponseWriter, r *http.Request) error {
	records, err := s.store.Records()
	if err != nil {
		return err
	}
	member := FindRecord(records, r.PathValue("slug"))
	return s.render(w, r, http.StatusOK, "member.html", map[string]interface{}{
		"PageTitle": member.Name(),
		"Member":    member,
	})
}

func (s *Site) contact(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, r, http.StatusOK, "contact.html", map[string]interface{}{
		"PageTitle": "Contact",
	})
}

// submitContact logs the submission and shows the form again. Nothing is
// stored and the page does not acknowledge the submission.
func (s *Site) submitContact(w http.ResponseWriter, r *http.Request) error {
	sub, err := ParseContactForm(r)
	if err != nil {
		return err
	}
	log.Printf("[CONTACT] %s name=%q email=%q", sub.ID, sub.Name, sub.Email)
	return s.contact(w, r)
}

func (s *Site) careers(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, r, http.StatusOK, "careers.html", map[string]interface{}{
		"PageTitle": "Careers",
	})
}
