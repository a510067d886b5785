package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `services:
  app:
    image: __IMAGE__
    ports:
      - "5000:5000"
`

// =============================================================================
// Substitute Tests
// =============================================================================

func TestSubstitute_ReplacesPlaceholder(t *testing.T) {
	out, changed, err := Substitute(sampleManifest, "__IMAGE__", "registry.example.com/app:v42")

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, "image: registry.example.com/app:v42")
	assert.NotContains(t, out, "__IMAGE__")
}

func TestSubstitute_Idempotent(t *testing.T) {
	out, changed, err := Substitute(sampleManifest, "__IMAGE__", "registry.example.com/app:v42")
	require.NoError(t, err)
	require.True(t, changed)

	// Second run with the same target is a no-op.
	out2, changed2, err := Substitute(out, "__IMAGE__", "registry.example.com/app:v42")
	require.NoError(t, err)
	assert.False(t, changed2)
	assert.Equal(t, out, out2)
}

func TestSubstitute_PlaceholderAbsent(t *testing.T) {
	content := "services:\n  app:\n    image: nginx:1.27\n"

	out, changed, err := Substitute(content, "__IMAGE__", "registry.example.com/app:v42")

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, content, out)
}

func TestSubstitute_ReplacesEveryOccurrence(t *testing.T) {
	content := `services:
  app:
    image: __IMAGE__
  worker:
    image: __IMAGE__
`

	out, changed, err := Substitute(content, "__IMAGE__", "app:v1")

	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, out, "__IMAGE__")
}

func TestSubstitute_InputValidation(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		placeholder string
		target      string
		wantErr     error
	}{
		{"empty manifest", "", "__IMAGE__", "app:v1", ErrEmptyManifest},
		{"whitespace manifest", "   \n", "__IMAGE__", "app:v1", ErrEmptyManifest},
		{"empty placeholder", sampleManifest, "", "app:v1", ErrEmptyPlaceholder},
		{"empty target", sampleManifest, "__IMAGE__", "", ErrEmptyImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Substitute(tt.content, tt.placeholder, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

func TestValidate_ValidManifest(t *testing.T) {
	content := `services:
  app:
    image: registry.example.com/app:v42
    ports:
      - "5000:5000"
`

	err := Validate(content, "registry.example.com/app:v42")
	assert.NoError(t, err)
}

func TestValidate_SkipsImageCheckWhenEmpty(t *testing.T) {
	content := "services:\n  app:\n    image: nginx:1.27\n"

	err := Validate(content, "")
	assert.NoError(t, err)
}

func TestValidate_InvalidYAML(t *testing.T) {
	err := Validate("services:\n  app:\n   image: [unclosed", "app:v1")
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestValidate_NotAMapping(t *testing.T) {
	err := Validate("- just\n- a\n- list\n", "app:v1")
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestValidate_ImageNotReferenced(t *testing.T) {
	content := "services:\n  app:\n    image: nginx:1.27\n"

	err := Validate(content, "registry.example.com/app:v42")
	assert.ErrorIs(t, err, ErrImageNotReferenced)
}
