package workflow

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"maestro-ai/internal/domain"
)

// LoadDefinitions reads YAML workflow definitions from dir. Files that are
// unreadable, unparseable, or structurally invalid are skipped with a
// warning; a missing directory yields an empty map. Definitions without a
// name take the file name.
func LoadDefinitions(dir string, logger *slog.Logger) (map[string]domain.WorkflowDefinition, error) {
	defs := make(map[string]domain.WorkflowDefinition)
	if dir == "" {
		return defs, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("definition directory does not exist", "dir", dir)
			return defs, nil
		}
		return nil, domain.WrapOp("read definition dir", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("skip unreadable workflow file", "file", entry.Name(), "error", err)
			continue
		}

		var def domain.WorkflowDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			logger.Warn("skip invalid workflow file", "file", entry.Name(), "error", err)
			continue
		}
		if def.Name == "" {
			def.Name = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if _, err := buildGraph(def); err != nil {
			logger.Warn("skip invalid workflow definition", "file", entry.Name(), "error", err)
			continue
		}

		defs[def.Name] = def
	}

	logger.Info("workflow definitions loaded", "count", len(defs), "dir", dir)
	return defs, nil
}

// Validate checks a definition without executing it. It surfaces the same
// configuration errors ExecuteWorkflow would.
func Validate(def domain.WorkflowDefinition) error {
	_, err := buildGraph(def)
	return err
}
