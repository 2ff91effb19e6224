package cli

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

//go:embed all:_starter
var starterFS embed.FS

var InitCommand = &cli.Command{
	Name:      "init",
	Usage:     "Create a starter site (templates, data file, config) in the target directory",
	ArgsUsage: "[directory (default: current directory)]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite files that already exist",
		},
	},
	Action: func(c *cli.Context) error {
		targetDir := c.Args().First()
		if targetDir == "" {
			targetDir, _ = os.Getwd()
		}
		fmt.Println("🚀 Creating site in:", targetDir)

		written, err := copyEmbeddedDir(starterFS, "_starter", targetDir, c.Bool("force"))
		if err != nil {
			return fmt.Errorf("failed to create site: %w", err)
		}

		fmt.Printf("✅ Site created (%d files written).\n", written)
		fmt.Println("▶  Run: teamsite dev")
		return nil
	},
}

// copyEmbeddedDir copies sourceDir out of source into targetDir and reports
// how many files it wrote. Existing files are left alone unless overwrite is
// set.
func copyEmbeddedDir(source fs.FS, sourceDir string, targetDir string, overwrite bool) (int, error) {
	written := 0
	err := fs.WalkDir(source, sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		targetPath := filepath.Join(targetDir, rel)

		if d.IsDir() {
			return os.MkdirAll(targetPath, os.ModePerm)
		}

		if !overwrite {
			if _, err := os.Stat(targetPath); err == nil {
				fmt.Println("⏭️  Keeping existing", rel)
				return nil
			}
		}

		data, err := fs.ReadFile(source, path)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), os.ModePerm); err != nil {
			return err
		}

		if err := os.WriteFile(targetPath, data, 0644); err != nil {
			return err
		}
		written++
		return nil
	})
	return written, err
}
