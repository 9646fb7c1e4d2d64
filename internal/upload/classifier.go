package upload

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cmsdeploy/uploader/internal/fields"
)

// Classification is the routing decision for one file.
type Classification struct {
	RelativePath  string
	Channel       Channel
	Transformable bool
	Excluded      bool
}

// Classifier is a pure function of a path and its RoutingConfig.
type Classifier struct {
	cfg          RoutingConfig
	isDefinition fields.Matcher
}

func NewClassifier(cfg RoutingConfig, isDefinition fields.Matcher) *Classifier {
	if isDefinition == nil {
		isDefinition = fields.ReservedNames(fields.DefaultDefinitionNames...)
	}
	return &Classifier{cfg: cfg, isDefinition: isDefinition}
}

func (c *Classifier) Classify(absPath string) Classification {
	rel := RelativePath(absPath, c.cfg.SourceRoot)
	if ShouldExclude(rel, c.cfg.ExcludePatterns) {
		return Classification{RelativePath: rel, Excluded: true}
	}

	channel := ChannelPrimary
	if c.cfg.AssetSourceRoot != "" && strings.Contains(normalizePath(absPath), normalizePath(c.cfg.AssetSourceRoot)) {
		channel = ChannelAssetManager
	}

	return Classification{
		RelativePath:  rel,
		Channel:       channel,
		Transformable: c.isDefinition(rel),
	}
}

// Job turns a non excluded classification into an upload job.
func (c Classification) Job(absPath string) Job {
	return Job{AbsolutePath: absPath, RelativePath: c.RelativePath, Channel: c.Channel}
}

// RelativePath strips rootDir and one leading separator from absPath and
// normalizes separators to forward slashes.
func RelativePath(absPath, rootDir string) string {
	rel := strings.TrimPrefix(absPath, rootDir)
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		rel = rel[1:]
	}
	return normalizePath(rel)
}

// ShouldExclude reports whether relPath matches any of patterns. A pattern
// starting with a dot matches a suffix. Any other pattern matches a substring,
// or, when it holds glob metacharacters, a doublestar match of the whole path.
func ShouldExclude(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, ".") {
			if strings.HasSuffix(relPath, pattern) {
				return true
			}
			continue
		}
		if strings.Contains(relPath, pattern) {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
