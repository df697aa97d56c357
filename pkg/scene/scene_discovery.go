package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/pkg/loaders"
)

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // Display name including the variant
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin", "toml" or "yaml"
	FilePath    string `json:"filePath"`    // Settings file (file types only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse is the grouped listing printed by the CLI
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

const builtInGroup = "Built-in Scenes"

// builtInScenes are rendered from DefaultSettings with the scene type replaced
var builtInScenes = []SceneInfo{
	{
		ID:          "chart",
		Name:        "Color Chart",
		DisplayName: "Color Chart",
		Description: "24 patch color checker under a 6500K blackbody",
		Group:       builtInGroup,
		Type:        "builtin",
	},
	{
		ID:          "ramp",
		Name:        "Exposure Ramp",
		DisplayName: "Exposure Ramp",
		Description: "Illuminant stepped and ramped over 12 stops",
		Group:       builtInGroup,
		Type:        "builtin",
	},
}

// BuiltInSettings returns the settings of a built-in scene
func BuiltInSettings(id string) (*loaders.Settings, bool) {
	for _, info := range builtInScenes {
		if info.ID == id {
			s := loaders.DefaultSettings()
			s.Scene.Type = id
			s.Scene.Name = info.Name
			return &s, true
		}
	}
	return nil, false
}

// ListSceneFiles scans dir for TOML and YAML settings files. A missing
// directory gives an empty list.
func ListSceneFiles(dir string, logger core.Logger) ([]SceneInfo, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []SceneInfo{}, nil
	}

	var files []string
	for _, pattern := range []string{"*.toml", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
		}
		files = append(files, matches...)
	}

	scenes := []SceneInfo{}
	for _, filePath := range files {
		sceneInfo, err := ParseSceneMetadata(filePath)
		if err != nil {
			logger.Warn("failed to parse scene metadata", "file", filePath, "error", err)
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})

	return scenes, nil
}

// ParseSceneMetadata extracts metadata from the header comments of a
// settings file. TOML and YAML share the '#' comment syntax.
func ParseSceneMetadata(filePath string) (SceneInfo, error) {
	filename := filepath.Base(filePath)
	ext := filepath.Ext(filename)
	nameWithoutExt := strings.TrimSuffix(filename, ext)

	fileType := "yaml"
	if strings.EqualFold(ext, ".toml") {
		fileType = "toml"
	}

	// Fallback values
	sceneInfo := SceneInfo{
		ID:          fmt.Sprintf("file:%s", nameWithoutExt),
		Name:        titleCase(nameWithoutExt),
		DisplayName: titleCase(nameWithoutExt),
		Group:       "Settings Files",
		Type:        fileType,
		FilePath:    filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		// If we can't read the file, return with fallback values
		return sceneInfo, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Stop parsing at first non-comment line
		if !strings.HasPrefix(line, "#") {
			break
		}

		if content, ok := strings.CutPrefix(line, "# "); ok {
			if v, ok := strings.CutPrefix(content, "Scene:"); ok {
				sceneInfo.Name = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(content, "Variant:"); ok {
				sceneInfo.Variant = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(content, "Description:"); ok {
				sceneInfo.Description = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(content, "Group:"); ok {
				sceneInfo.Group = strings.TrimSpace(v)
			}
		}
	}

	if sceneInfo.Variant != "" {
		sceneInfo.DisplayName = fmt.Sprintf("%s - %s", sceneInfo.Name, sceneInfo.Variant)
	} else {
		sceneInfo.DisplayName = sceneInfo.Name
	}

	return sceneInfo, scanner.Err()
}

// ListAllScenes returns both built-in scenes and the settings files in dir,
// grouped by category
func ListAllScenes(dir string, logger core.Logger) (ScenesResponse, error) {
	var response ScenesResponse

	fileScenes, err := ListSceneFiles(dir, logger)
	if err != nil {
		return response, fmt.Errorf("failed to list scene files: %w", err)
	}

	allScenes := append(append([]SceneInfo{}, builtInScenes...), fileScenes...)

	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtInGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{
		Name:   builtInGroup,
		Scenes: groupMap[builtInGroup],
	})
	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "macbeth-d50" -> "Macbeth D50"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
