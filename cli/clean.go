package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
)

var CleanCommand = &cli.Command{
	Name:      "clean",
	Usage:     "Delete minified assets from the output directory (default: outputDir in teamsite.config.yml)",
	ArgsUsage: "[subdirectory (optional)]",
	Flags:     []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := loadConfig(c)
		target := config.OutputDir

		if c.Args().Len() > 0 {
			sub := filepath.Clean(strings.TrimPrefix(c.Args().Get(0), "/"))
			if sub == ".." || strings.HasPrefix(sub, ".."+string(filepath.Separator)) {
				return fmt.Errorf("refusing to clean outside %s: %s", config.OutputDir, sub)
			}
			target = filepath.Join(config.OutputDir, sub)
		}

		info, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("🧼 Nothing to clean:", target)
				return nil
			}
			return fmt.Errorf("failed to access path: %w", err)
		}

		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", target)
		}

		fmt.Println("🧹 Cleaning:", target)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to clean cache: %w", err)
		}

		fmt.Println("✅ Done.")
		return nil
	},
}
