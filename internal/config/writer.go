package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const configHeader = "# aether configuration. See config.schema.json for every key.\n\n"

// sectionHeader matches "[name]" but not array-of-tables "[[name]]" lines,
// which stay attached to their parent section.
var sectionHeader = regexp.MustCompile(`^\s*\[([^\[\]]+)\]\s*$`)

// WriteConfigOrdered writes cfg as TOML with top-level sections sorted
// alphabetically, so regenerated files diff cleanly.
func WriteConfigOrdered(cfg *Config, path string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	content := configHeader + sortTOMLSections(buf.String())
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func sortTOMLSections(content string) string {
	type section struct {
		header string
		lines  []string
	}

	var (
		preamble []string
		sections []section
	)
	for _, line := range strings.Split(content, "\n") {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			sections = append(sections, section{header: m[1], lines: []string{line}})
			continue
		}
		if len(sections) == 0 {
			preamble = append(preamble, line)
			continue
		}
		last := &sections[len(sections)-1]
		last.lines = append(last.lines, line)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].header < sections[j].header
	})

	var out strings.Builder
	for _, line := range preamble {
		if strings.TrimSpace(line) != "" {
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	for _, sec := range sections {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n\n") {
			out.WriteString("\n")
		}
		body := strings.TrimRight(strings.Join(sec.lines, "\n"), "\n")
		out.WriteString(body)
		out.WriteString("\n")
	}
	return out.String()
}
