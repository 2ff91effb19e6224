package cli

import (
	"fmt"
	"io"

	"github.com/go-barry/teamsite/core"
	"github.com/urfave/cli/v2"
)

var CheckCommand = &cli.Command{
	Name:  "check",
	Usage: "Validate page templates and the record data file",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := loadConfig(c)
		failed := false

		records, err := core.LoadRecords(config.DataFile)
		if err != nil {
			failed = true
			fmt.Printf("❌ %s → %v\n", config.DataFile, err)
		} else {
			for _, problem := range recordProblems(records) {
				failed = true
				fmt.Printf("❌ %s → %s\n", config.DataFile, problem)
			}
			if !failed {
				fmt.Printf("✅ %s (%d records)\n", config.DataFile, len(records))
			}
		}

		funcs := core.TemplateFuncs("dev", config.PublicDir, config.OutputDir)
		renderer := core.NewTemplateRenderer(config.TemplatesDir, "dev", funcs)

		// Member pages must also render for a slug with no record.
		samples := []core.Record{{}}
		if len(records) > 0 {
			samples = append(samples, records[0])
		}

		for _, page := range pageTemplates(config.TemplatesDir) {
			var pageErr error
			for _, member := range samples {
				data := map[string]interface{}{
					"PageTitle": "Check",
					"Company":   records,
					"Member":    member,
				}
				if pageErr = renderer.Render(io.Discard, page, data); pageErr != nil {
					break
				}
			}

			if pageErr != nil {
				failed = true
				fmt.Printf("❌ %s → %v\n", page, pageErr)
			} else {
				fmt.Printf("✅ %s\n", page)
			}
		}

		if failed {
			return cli.Exit("some checks failed", 1)
		}

		fmt.Println("✅ All templates and records validated successfully.")
		return nil
	},
}

func recordProblems(records []core.Record) []string {
	var problems []string
	for i, rec := range records {
		for _, key := range []string{"url", "name"} {
			if rec.String(key) == "" {
				problems = append(problems, fmt.Sprintf("record %d has no %q", i, key))
			}
		}
	}
	for _, slug := range core.DuplicateSlugs(records) {
		problems = append(problems, fmt.Sprintf("slug %q is used more than once", slug))
	}
	return problems
}
