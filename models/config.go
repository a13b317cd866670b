package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mcjars/registry/models/servertype"
)

// Format is a config file's serialization format, matching config.rs's
// Format enum.
type Format string

const (
	FormatProperties Format = "PROPERTIES"
	FormatYAML       Format = "YAML"
	FormatConf       Format = "CONF"
	FormatTOML       Format = "TOML"
)

// Config describes one well-known config file: the family it belongs to,
// its format, and the filenames it's recognized under.
type Config struct {
	Type    servertype.Type `json:"type"`
	Format  Format          `json:"format"`
	Aliases []string        `json:"aliases"`
}

// Configs is the static registry of known config files, matching
// config.rs's CONFIGS map. Keyed by canonical path.
var Configs = map[string]Config{
	"server.properties":         {Type: servertype.Vanilla, Format: FormatProperties, Aliases: []string{"server.properties"}},
	"spigot.yml":                {Type: servertype.Spigot, Format: FormatYAML, Aliases: []string{"spigot.yml"}},
	"bukkit.yml":                {Type: servertype.Spigot, Format: FormatYAML, Aliases: []string{"bukkit.yml"}},
	"paper.yml":                 {Type: servertype.Paper, Format: FormatYAML, Aliases: []string{"paper.yml"}},
	"config/paper-global.yml":   {Type: servertype.Paper, Format: FormatYAML, Aliases: []string{"config/paper-global.yml"}},
	"pufferfish.yml":            {Type: servertype.Pufferfish, Format: FormatYAML, Aliases: []string{"pufferfish.yml"}},
	"config.yml":                {Type: servertype.Purpur, Format: FormatYAML, Aliases: []string{"config.yml"}},
	"leaves.yml":                {Type: servertype.Leaves, Format: FormatYAML, Aliases: []string{"leaves.yml"}},
	"velocity.toml":             {Type: servertype.Velocity, Format: FormatTOML, Aliases: []string{"velocity.toml"}},
}

// ConfigByAlias finds the Config whose alias list contains alias,
// matching Config::by_alias.
func ConfigByAlias(alias string) (Config, bool) {
	for _, cfg := range Configs {
		for _, a := range cfg.Aliases {
			if a == alias {
				return cfg, true
			}
		}
	}
	return Config{}, false
}

// FormatConfig strips comments and blank lines, normalizes the body
// according to the file's format, and extracts a version side-channel
// line used for exact-match pre-filtering. Pure function, no I/O,
// matching config.rs's Config::format.
func FormatConfig(file, content string) (string, string, error) {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	value := b.String()

	var versionLine string

	switch {
	case strings.HasSuffix(file, ".properties"):
		lines := strings.Split(strings.TrimRight(value, "\n"), "\n")
		sort.Strings(lines)
		value = strings.Join(lines, "\n")

	case strings.HasSuffix(file, ".yml") || strings.HasSuffix(file, ".yaml"):
		var parsed yaml.Node
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
			return "", "", fmt.Errorf("parse yaml: %w", err)
		}
		if len(parsed.Content) > 0 {
			root := parsed.Content[0]
			redactYAMLKey(root, "stats_uuid", file == "config.yml")
			redactYAMLKey(root, "stats", file == "config.yml")
			redactYAMLKey(root, "server-id", file == "leaves.yml")

			if file != "pufferfish.yml" {
				versionLine = yamlVersionLine(root)
			}

			redactYAMLSeedKeysRecursively(root)
		}

		out, err := yaml.Marshal(&parsed)
		if err != nil {
			return "", "", fmt.Errorf("marshal yaml: %w", err)
		}
		value = string(out)

	case strings.HasSuffix(file, ".toml"):
		var parsed map[string]any
		if err := toml.Unmarshal([]byte(value), &parsed); err != nil {
			return "", "", fmt.Errorf("parse toml: %w", err)
		}
		versionLine = tomlVersionLine(parsed)
	}

	if file == "velocity.toml" {
		for _, line := range strings.Split(value, "\n") {
			if strings.HasPrefix(line, "forwarding-secret =") {
				value = strings.Replace(value, line, `forwarding-secret = "xxx"`, 1)
				break
			}
		}
	}

	return value, versionLine, nil
}

func yamlVersionLine(node *yaml.Node) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if key == "config-version" || key == "version" {
			return fmt.Sprintf("%s: %s", key, node.Content[i+1].Value)
		}
	}
	return ""
}

func tomlVersionLine(parsed map[string]any) string {
	v, ok := parsed["config-version"]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf(`config-version = "%s"`, val)
	case int64:
		return fmt.Sprintf("config-version = %d", val)
	case int:
		return fmt.Sprintf("config-version = %d", val)
	default:
		return ""
	}
}

// redactYAMLKey replaces a top-level string-valued mapping key with
// "xxx" when enabled, matching config.rs's per-file stats_uuid/stats/
// server-id redaction.
func redactYAMLKey(node *yaml.Node, key string, enabled bool) {
	if !enabled || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key && node.Content[i+1].Kind == yaml.ScalarNode {
			node.Content[i+1].Value = "xxx"
			node.Content[i+1].Tag = "!!str"
		}
	}
}

// redactYAMLSeedKeysRecursively walks the whole tree, sorting mapping
// keys lexicographically and redacting any scalar value whose key
// begins with "seed-", matching process_yaml_keys_recursively.
func redactYAMLSeedKeysRecursively(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode:
		type pair struct{ key, value *yaml.Node }
		pairs := make([]pair, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			pairs = append(pairs, pair{node.Content[i], node.Content[i+1]})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].key.Value < pairs[j].key.Value })

		node.Content = node.Content[:0]
		for _, p := range pairs {
			if strings.HasPrefix(p.key.Value, "seed-") && p.value.Kind == yaml.ScalarNode {
				p.value.Value = "xxx"
				p.value.Tag = "!!str"
			} else {
				redactYAMLKeysForChild(p.value)
			}
			node.Content = append(node.Content, p.key, p.value)
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			redactYAMLKeysForChild(child)
		}
	}
}

func redactYAMLKeysForChild(node *yaml.Node) {
	redactYAMLSeedKeysRecursively(node)
}
