// Package manifest contains pure functions for rewriting the deployment
// manifest. No I/O happens here: callers read the compose file, hand its
// content to Substitute, and write the result back themselves.
package manifest

import (
	"context"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Substitution
// =============================================================================

// Substitute replaces every occurrence of the placeholder image reference
// with the target image reference. It is idempotent: once the manifest
// carries the target reference, a second run with the same target reports
// changed=false and returns the content untouched.
func Substitute(content, placeholder, target string) (string, bool, error) {
	if strings.TrimSpace(content) == "" {
		return "", false, ErrEmptyManifest
	}
	if placeholder == "" {
		return "", false, ErrEmptyPlaceholder
	}
	if target == "" {
		return "", false, ErrEmptyImage
	}

	if !strings.Contains(content, placeholder) {
		return content, false, nil
	}

	return strings.ReplaceAll(content, placeholder, target), true, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks that the (already substituted) manifest is a loadable
// compose spec with at least one service, and that the target image is
// actually referenced by one of them. Pass image="" to skip the reference
// check, e.g. when the substitution was a no-op.
func Validate(content, image string) error {
	project, err := loadProject(content)
	if err != nil {
		return err
	}

	if len(project.Services) == 0 {
		return NewValidationError("services", "manifest must define at least one service", ErrNoServices)
	}

	if image == "" {
		return nil
	}

	for _, svc := range project.Services {
		if svc.Image == image {
			return nil
		}
	}
	return NewValidationError("services", "target image "+image+" is not referenced by any service", ErrImageNotReferenced)
}

// loadProject loads the manifest using compose-go.
func loadProject(content string) (*types.Project, error) {
	// Parse YAML into a map first so syntax errors surface as ErrInvalidYAML
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(content), &dict); err != nil {
		return nil, NewValidationError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewValidationError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(content),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("shipward-manifest", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // deploy-time env is the compose tool's job
		// In-memory content: nothing to normalize, no external files to extend
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewValidationError("", err.Error(), ErrInvalidYAML)
	}

	return project, nil
}
