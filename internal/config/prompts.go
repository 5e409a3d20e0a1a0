package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Prompts holds the fixed instructional text the composite prompt is built
// from. The file is human-editable JSON; missing fields fall back to the
// built-in defaults so a partial file stays usable.
type Prompts struct {
	// VisionPrompt is the fixed factual-description request sent to the
	// vision model in traditional (non-multimodal) mode.
	VisionPrompt string `json:"vision_prompt,omitempty"`

	// TasksInstruction is the global "how to format your answer" preamble
	// included whenever task contributors added content.
	TasksInstruction string `json:"tasks_instruction,omitempty"`

	// SpeakInstruction requires the spoken reply be wrapped as [speak:(...)].
	SpeakInstruction string `json:"speak_instruction,omitempty"`

	// FallbackPrompt is the personality template used when no personality is
	// selected. Its single %s slot receives the visual description.
	FallbackPrompt string `json:"fallback_prompt,omitempty"`

	// LevelsPrompt explains the skill/attribute system and its commands.
	LevelsPrompt string `json:"levels_prompt,omitempty"`

	// MemoryPrompt explains the memory slots and their commands.
	MemoryPrompt string `json:"memory_prompt,omitempty"`
}

// DefaultPrompts returns the built-in instructional text.
func DefaultPrompts() *Prompts {
	return &Prompts{
		VisionPrompt: "Describe factually what is visible on this screen: " +
			"applications, window titles, visible text and activity. " +
			"Do not speculate about intent. Keep it under 120 words.",

		TasksInstruction: "You will receive one or more system tasks below. " +
			"Respond to each task only with the bracketed commands it defines. " +
			"Bracketed commands are instructions, not conversation, and must " +
			"appear outside any spoken text.",

		SpeakInstruction: "Wrap everything you want to say out loud in a " +
			"single bracket of the form [speak:(your comment here)]. Text " +
			"outside speak brackets is never spoken.",

		FallbackPrompt: "You are a small desktop companion watching the " +
			"user's screen. React in one or two short sentences to this " +
			"activity: %s",

		LevelsPrompt: "LEVELS TASK: The user grows an RPG-style profile from " +
			"observed activity. Review the DATA below. If the current " +
			"activity clearly exercises a skill, award experience with " +
			"[levels:add_exp_on_skill(skill_name, amount)] using a small " +
			"amount from 1 to 5. Create a missing skill with " +
			"[levels:add_skill(skill_name, attribute)] choosing the best " +
			"attribute from available_attributes. Use lowercase snake_case " +
			"skill names. Do nothing when no skill applies.",

		MemoryPrompt: "MEMORY TASK: Maintain the user's memory slots from " +
			"the DATA below. Store a provisional observation with " +
			"[memory:write_short_term(text)]. Promote a stable, durable fact " +
			"with [memory:write_long_term(text)]; it fully replaces the " +
			"previous long-term text, so restate everything worth keeping. " +
			"Do nothing when there is nothing new to record.",
	}
}

// LoadPrompts loads the prompts file, applying defaults for missing fields.
// An absent file yields the full defaults; a corrupt file is an error so a
// broken edit does not silently degrade the prompt.
func LoadPrompts(path string) (*Prompts, error) {
	p := &Prompts{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPrompts(), nil
		}
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	d := DefaultPrompts()
	if p.VisionPrompt == "" {
		p.VisionPrompt = d.VisionPrompt
	}
	if p.TasksInstruction == "" {
		p.TasksInstruction = d.TasksInstruction
	}
	if p.SpeakInstruction == "" {
		p.SpeakInstruction = d.SpeakInstruction
	}
	if p.FallbackPrompt == "" {
		p.FallbackPrompt = d.FallbackPrompt
	}
	if p.LevelsPrompt == "" {
		p.LevelsPrompt = d.LevelsPrompt
	}
	if p.MemoryPrompt == "" {
		p.MemoryPrompt = d.MemoryPrompt
	}
	return p, nil
}

// Save writes the prompts to a JSON file.
func (p *Prompts) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create prompts directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prompts: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prompts: %w", err)
	}
	return nil
}
