// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/jackerost/attendance/pkg/private/serrors"
)

// NewGendocs creates a hidden command that renders the markdown reference of
// the command tree, one file per command.
func NewGendocs(pather Pather) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "gendocs <directory>",
		Short:   "Generate the markdown command reference",
		Example: "  " + pather.CommandPath() + " gendocs docs/commands",
		Args:    cobra.ExactArgs(1),
		Hidden:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			root.DisableAutoGenTag = true
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return serrors.Wrap("creating directory", err, "dir", dir)
			}
			if err := writeReference(root, dir); err != nil {
				return serrors.Wrap("generating documentation", err, "dir", dir)
			}
			return nil
		},
	}
	return cmd
}

// writeReference writes the page of cmd and of all its available
// subcommands. Pages link to each other by file name.
func writeReference(cmd *cobra.Command, dir string) error {
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.IsAdditionalHelpTopicCommand() {
			continue
		}
		if err := writeReference(c, dir); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := doc.GenMarkdownCustom(cmd, &buf, func(name string) string {
		return name
	}); err != nil {
		return err
	}
	// Page titles are top level headings.
	raw := strings.Replace(buf.String(), "## ", "# ", 1)
	name := pageName(cmd)
	return os.WriteFile(filepath.Join(dir, name), []byte(raw), 0o644)
}

func pageName(cmd *cobra.Command) string {
	return strings.ReplaceAll(cmd.CommandPath(), " ", "_") + ".md"
}
