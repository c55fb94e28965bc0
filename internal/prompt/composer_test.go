package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jude-e/backend/internal/model"
	"jude-e/backend/internal/retrieval"
)

func bundleOf(texts ...string) *retrieval.Bundle {
	docs := make([]retrieval.Document, len(texts))
	for i, text := range texts {
		docs[i] = retrieval.Document{Text: text}
	}
	return &retrieval.Bundle{Shape: retrieval.ShapeFlat, Documents: docs}
}

func TestAugmentedPrompt(t *testing.T) {
	got := AugmentedPrompt("What is AML?", []string{"AML is a blood cancer.", "AML affects white blood cells."})
	assert.Equal(t, "Context: AML is a blood cancer.\n\n---\n\nAML affects white blood cells.\n\nQuestion: What is AML?\nAnswer:", got)
}

func TestAugmentedPrompt_NoDocuments(t *testing.T) {
	assert.Equal(t, "Context: \n\nQuestion: q\nAnswer:", AugmentedPrompt("q", nil))
	assert.Equal(t, "Context: \n\nQuestion: q\nAnswer:", AugmentedPrompt("q", []string{}))
}

func TestSystemPrompt_ChildDirective(t *testing.T) {
	child := SystemPrompt(model.RoleChild)
	caregiver := SystemPrompt(model.RoleCaregiver)

	assert.Contains(t, child, childSegment)
	assert.NotContains(t, caregiver, childSegment)

	// Removing the child segment must give back the caregiver prompt exactly.
	stripped := strings.Replace(child, childSegment+segmentSeparator, "", 1)
	assert.Equal(t, caregiver, stripped)
}

func TestSystemPrompt_SegmentOrder(t *testing.T) {
	prompt := SystemPrompt(model.RoleChild)

	order := []string{personaSegment, childSegment, guidelinesSegment, toneSegment, fallbackSegment, roleSegment}
	last := -1
	for _, segment := range order {
		idx := strings.Index(prompt, segment)
		if assert.GreaterOrEqual(t, idx, 0) {
			assert.Greater(t, idx, last)
			last = idx
		}
	}
	assert.True(t, strings.HasSuffix(prompt, roleSegment))
}

func TestSystemPrompt_UnspecifiedRoleIsCaregiver(t *testing.T) {
	assert.Equal(t, SystemPrompt(model.RoleCaregiver), SystemPrompt(model.ParseRole("")))
	assert.Equal(t, SystemPrompt(model.RoleCaregiver), SystemPrompt(model.ParseRole("parent")))
	assert.Equal(t, SystemPrompt(model.RoleChild), SystemPrompt(model.ParseRole("kid")))
}

func TestComposer_Compose(t *testing.T) {
	sampling := Sampling{Temperature: 0.2, TopP: 0.9, TopK: 40}
	composer := NewComposer(sampling)

	req := composer.Compose("What is AML?", bundleOf("AML is a blood cancer."), model.RoleChild)

	assert.Equal(t, SystemPrompt(model.RoleChild), req.System)
	assert.Equal(t, "Context: AML is a blood cancer.\n\nQuestion: What is AML?\nAnswer:", req.Prompt)
	assert.Equal(t, sampling, req.Sampling)
	assert.False(t, req.Think)
}

func TestComposer_Compose_NilBundle(t *testing.T) {
	req := NewComposer(Sampling{}).Compose("q", nil, model.RoleCaregiver)
	assert.Equal(t, "Context: \n\nQuestion: q\nAnswer:", req.Prompt)
}

func TestComposer_IsDeterministic(t *testing.T) {
	composer := NewComposer(Sampling{Temperature: 0.5})
	bundle := bundleOf("a", "b")

	first := composer.Compose("q", bundle, model.RoleChild)
	second := composer.Compose("q", bundle, model.RoleChild)
	assert.Equal(t, first, second)
}
