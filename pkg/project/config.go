// Package project runs Code Connect over a project directory: it loads the
// configuration, discovers the files to parse, dispatches them to the
// matching front end and collects the documents and messages.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/codeconnect/pkg/connect"
)

// Parsers.
const (
	ParserReact   = "react"
	ParserHTML    = "html"
	ParserSwift   = "swift"
	ParserCompose = "compose"
	ParserCustom  = "custom"
)

// ConfigFileNames are the config files looked for in the project
// directory, in order.
var ConfigFileNames = []string{"figma.config.json", "figma.config.yaml", "figma.config.yml"}

// MaxFilesWarning is the number of matched files above which a warning is
// logged.
const MaxFilesWarning = 10000

// DefaultIncludeGlobs are used when the config has no include globs.
// Custom parsers have none.
var DefaultIncludeGlobs = map[string][]string{
	ParserReact:   {"**/*.{tsx,jsx}"},
	ParserHTML:    {"**/*.{ts,js}"},
	ParserSwift:   {"**/*.swift"},
	ParserCompose: {"**/*.kt"},
}

// DefaultExcludeGlobs are always appended to the configured exclude globs.
var DefaultExcludeGlobs = map[string][]string{
	ParserReact: {"node_modules/**"},
	ParserHTML:  {"node_modules/**"},
}

// Config is the `codeConnect` section of figma.config.json.
type Config struct {
	Parser  string   `yaml:"parser" json:"parser,omitempty"`
	Label   string   `yaml:"label" json:"label,omitempty"`
	Include []string `yaml:"include" json:"include,omitempty"`
	Exclude []string `yaml:"exclude" json:"exclude,omitempty"`

	DocumentURLSubstitutions *orderedmap.OrderedMap[string, string] `yaml:"documentUrlSubstitutions" json:"documentUrlSubstitutions,omitempty"`
	ImportPaths              *orderedmap.OrderedMap[string, string] `yaml:"importPaths" json:"importPaths,omitempty"`
	// Paths are tsconfig-style path aliases.
	Paths map[string][]string `yaml:"paths" json:"paths,omitempty"`

	Storybook struct {
		URL string `yaml:"url" json:"url,omitempty"`
	} `yaml:"storybook" json:"storybook"`

	// ParserCommand runs the custom parser.
	ParserCommand                string `yaml:"parserCommand" json:"parserCommand,omitempty"`
	InteractiveSetupFigmaFileURL string `yaml:"interactiveSetupFigmaFileUrl" json:"interactiveSetupFigmaFileUrl,omitempty"`
}

// ConnectConfig returns the part of the config the front ends read.
func (c *Config) ConnectConfig() connect.Config {
	return connect.Config{
		Label:                    c.Label,
		DocumentURLSubstitutions: c.DocumentURLSubstitutions,
		ImportPaths:              c.ImportPaths,
		StorybookURL:             c.Storybook.URL,
	}
}

type configFile struct {
	CodeConnect *Config `yaml:"codeConnect"`
}

// LoadConfig reads the config file at path. Returns nil (no error) if the
// file does not exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("Error parsing config file: %s: %w", path, err)
	}
	if f.CodeConnect == nil {
		return nil, fmt.Errorf("No options specified under 'codeConnect' in config file: %s", path)
	}
	return f.CodeConnect, nil
}

// FindConfig loads the first config file present in dir. The returned path
// is empty when there is none.
func FindConfig(dir string) (*Config, string, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		cfg, err := LoadConfig(path)
		if err != nil {
			return nil, "", err
		}
		if cfg != nil {
			return cfg, path, nil
		}
	}
	return nil, "", nil
}

// ResolveConfig loads the config of the project in dir, or of configPath
// when set, and fills in the parser and label from the project layout when
// the config doesn't name them.
func ResolveConfig(dir, configPath string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *Config
	var err error
	if configPath != "" {
		cfg, err = LoadConfig(configPath)
		if err == nil && cfg == nil {
			logger.Warn(fmt.Sprintf("%s does not exist, proceeding with default options", configPath))
		}
	} else {
		var path string
		cfg, path, err = FindConfig(dir)
		if err == nil && path == "" {
			logger.Info(fmt.Sprintf("No config file found in %s, proceeding with default options", dir))
		}
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.Parser == "" {
		parser, where := DetectParser(dir)
		if parser == "" {
			return nil, errors.New("Code Connect was not able to determine your project type, and no config file was found. Please ensure you are running Code Connect from your project root. You may need to create a config file specifying which parser to use.")
		}
		logger.Info("detected parser", "parser", parser, "dir", where)
		cfg.Parser = parser
		if cfg.Label == "" {
			if label, where := DetectLabel(dir); label != "" {
				logger.Info("detected label", "label", label, "dir", where)
				cfg.Label = label
			}
		}
	}
	return cfg, nil
}

type packageJSON struct {
	Dependencies     map[string]string `json:"dependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
}

func (p *packageJSON) contains(dep string) bool {
	return p.Dependencies[dep] != "" || p.PeerDependencies[dep] != "" || p.DevDependencies[dep] != ""
}

func readPackageJSON(dir string) (*packageJSON, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, false
	}
	var p packageJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return &packageJSON{}, true
	}
	return &p, true
}

// walkUp calls fn for dir and each of its parents until fn returns true.
func walkUp(dir string, fn func(dir string) bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	for {
		if fn(dir) {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// DetectParser walks up from dir to the first directory that identifies a
// supported platform and returns the parser and that directory.
func DetectParser(dir string) (parser, found string) {
	walkUp(dir, func(d string) bool {
		if pkg, ok := readPackageJSON(d); ok {
			parser = ParserHTML
			if pkg.contains("react") {
				parser = ParserReact
			}
		} else if exists(filepath.Join(d, "Package.swift")) || hasMatch(filepath.Join(d, "*.xcodeproj")) {
			parser = ParserSwift
		} else if exists(filepath.Join(d, "build.gradle.kts")) || exists(filepath.Join(d, "build.gradle")) {
			parser = ParserCompose
		}
		if parser != "" {
			found = d
			return true
		}
		return false
	})
	return parser, found
}

// DetectLabel walks up from dir looking for a package.json depending on a
// framework with its own label.
func DetectLabel(dir string) (label, found string) {
	walkUp(dir, func(d string) bool {
		pkg, ok := readPackageJSON(d)
		if !ok {
			return false
		}
		switch {
		case pkg.contains("angular"):
			label = "Angular"
		case pkg.contains("vue"):
			label = "Vue"
		default:
			return false
		}
		found = d
		return true
	})
	return label, found
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hasMatch(pattern string) bool {
	m, _ := filepath.Glob(pattern)
	return len(m) > 0
}
