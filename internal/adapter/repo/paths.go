package repo

import (
	"path"
	"strings"
)

const (
	historyIndex    = "prompts/history.json"
	templatesIndex  = "prompts/templates.json"
	breakdownsIndex = "prompts/breakdowns.json"
)

func projectDir(projectID string) string {
	return path.Join("projects", projectID)
}

func projectFile(projectID string) string {
	return path.Join(projectDir(projectID), "project.json")
}

func assetsIndex(projectID string) string {
	return path.Join(projectDir(projectID), "assets.json")
}

func assetsDir(projectID string) string {
	return path.Join(projectDir(projectID), "assets")
}

func assetFile(projectID, assetID string) string {
	return path.Join(assetsDir(projectID), assetID+".json")
}

// AssetFilesDir is where binary asset content of a project lives.
func AssetFilesDir(projectID string) string {
	return path.Join(assetsDir(projectID), "files")
}

// StyleDir is where uploaded style reference images of a project live.
func StyleDir(projectID string) string {
	return path.Join(projectDir(projectID), "style")
}

// safeID rejects ids that would address a path outside their entity directory.
func safeID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
