package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-barry/teamsite/core"
	"github.com/urfave/cli/v2"
)

var InfoCommand = &cli.Command{
	Name:  "info",
	Usage: "Print site configuration, record and template counts",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := loadConfig(c)

		fmt.Println("📁 Output Directory:", config.OutputDir)
		fmt.Println("📄 Data File:", config.DataFile)
		fmt.Println("🧩 Templates Directory:", config.TemplatesDir)
		fmt.Println("🔁 Reload Mode:", config.Reload)
		fmt.Println("🔁 Debug Headers Enabled:", config.DebugHeaders)
		fmt.Println("🔁 Debug Logs Enabled:", config.DebugLogs)
		fmt.Println()

		if records, err := core.LoadRecords(config.DataFile); err != nil {
			fmt.Println("👥 Records: unreadable:", err)
		} else {
			fmt.Println("👥 Records Found:", len(records))
		}

		fmt.Println("🗂️  Pages Found:", len(pageTemplates(config.TemplatesDir)))
		fmt.Println("📦 Components Found:", countFiles(filepath.Join(config.TemplatesDir, "components"), ".html"))
		fmt.Println("💾 Cached Assets:", countFiles(filepath.Join(config.OutputDir, "static"), ""))

		return nil
	},
}

func countFiles(dir, suffix string) int {
	count := 0
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasSuffix(path, suffix) {
			count++
		}
		return nil
	})
	return count
}

// pageTemplates lists the top-level .html files of dir that are pages, i.e.
// everything except layouts referenced by a layout directive.
func pageTemplates(dir string) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.html"))

	layouts := map[string]bool{}
	for _, m := range matches {
		if content, err := os.ReadFile(m); err == nil {
			if layout := core.ParseLayoutDirective(content); layout != "" {
				layouts[filepath.Join(dir, layout)] = true
			}
		}
	}

	var pages []string
	for _, m := range matches {
		if !layouts[m] {
			pages = append(pages, filepath.Base(m))
		}
	}
	return pages
}
