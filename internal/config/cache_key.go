package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ArtifactHTMLKey returns the cache key for a compiled artifact's HTML document
func (r *CacheKeyStruct) ArtifactHTMLKey(artifactID string) string {
	return fmt.Sprintf("artifact:%s:html", artifactID)
}

// ArtifactMetaKey returns the cache key for an artifact's title/question summary
func (r *CacheKeyStruct) ArtifactMetaKey(artifactID string) string {
	return fmt.Sprintf("artifact:%s:meta", artifactID)
}

// FolderResultSeenKey returns the set of session ids already accepted for a folder,
// used to drop duplicate pushes before they reach the queue
func (r *CacheKeyStruct) FolderResultSeenKey(folder string) string {
	return fmt.Sprintf("folder:%s:results:seen", folder)
}

var CacheKey = NewCacheKeyStruct()
