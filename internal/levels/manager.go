// Package levels owns the skill/attribute progression model: skills
// accumulate experience, each skill feeds exactly one attribute, and every
// attribute's level is recomputed from its skills' XP totals on each
// mutation. State persists to a human-editable JSON file.
package levels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deskmate/internal/logging"
)

// SkillInfo is one tracked skill: the attribute it feeds and its accumulated
// experience. Skills are created on first mention and never deleted.
type SkillInfo struct {
	Attribute  string `json:"attribute"`
	Experience int    `json:"experience"`
}

// userLevels is the persisted file shape. attributesXp holds the derived
// attribute levels; it is overwritten on every recompute and never read back
// as authority, so it cannot drift from the skill map.
type userLevels struct {
	AttributesXP    map[string]int       `json:"attributesXp"`
	AvailableSkills map[string]SkillInfo `json:"availableSkills"`
}

// AttributeProgress is the read surface for one attribute, consumed by UIs.
type AttributeProgress struct {
	Name          string  `json:"name"`
	Level         int     `json:"level"`
	TotalXP       int     `json:"total_xp"`
	XPToNextLevel int     `json:"xp_to_next_level"`
	ProgressRatio float64 `json:"progress_ratio"`
}

// Snapshot is a side-effect-free view of the full progression state.
type Snapshot struct {
	Attributes []AttributeProgress  `json:"attributes"`
	Skills     map[string]SkillInfo `json:"skills"`
}

// Manager owns skill/attribute state and its on-disk file. Mutations arrive
// only through bracket-command handlers, which routing invokes serially, but
// the manager locks anyway so reads from UI goroutines stay safe.
type Manager struct {
	mu         sync.RWMutex
	attributes []string
	state      userLevels
	path       string
}

// NewManager creates a progression manager for the configured attribute list,
// persisting to the given file path. Call Load before use.
func NewManager(attributes []string, path string) *Manager {
	return &Manager{
		attributes: append([]string(nil), attributes...),
		path:       path,
	}
}

// Load reads the persisted state, creating a zeroed default structure when
// the file is absent or corrupt. Load never fails startup on bad data.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	switch {
	case os.IsNotExist(err):
		m.state = m.defaultState()
		logging.Levels("no progression file at %s, created defaults", m.path)
	case err != nil:
		m.state = m.defaultState()
		logging.LevelsWarn("could not read %s (%v), using defaults", m.path, err)
	default:
		var loaded userLevels
		if jsonErr := json.Unmarshal(data, &loaded); jsonErr != nil {
			m.state = m.defaultState()
			logging.LevelsWarn("corrupt progression file %s (%v), reset to defaults", m.path, jsonErr)
		} else {
			m.state = loaded
			m.ensureAttributesPresent()
		}
	}

	m.recomputeLocked()
	if err := m.saveLocked(); err != nil {
		logging.LevelsError("initial save failed: %v", err)
	}
	return nil
}

// Attributes returns the configured attribute list.
func (m *Manager) Attributes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.attributes...)
}

// AddSkill creates a skill if absent, with the given attribute or the
// deterministic fallback. Pre-existing skills are not modified. Malformed
// input is a no-op, never a fault.
func (m *Manager) AddSkill(name, attribute string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.state.AvailableSkills[name]; exists {
		return
	}
	attr := strings.TrimSpace(attribute)
	if attr == "" {
		attr = m.fallbackAttribute()
	}
	m.state.AvailableSkills[name] = SkillInfo{Attribute: attr, Experience: 0}
	m.recomputeLocked()
	if err := m.saveLocked(); err != nil {
		logging.LevelsError("save after add_skill failed: %v", err)
	}
	logging.Levels("added new skill %q (%s)", name, attr)
}

// AddExpOnSkill adds experience to a skill, creating it with the fallback
// attribute when absent. Amounts at or below zero count as 1. Attribute
// levels are recomputed and the state persisted on every call.
func (m *Manager) AddExpOnSkill(name string, amount int) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if amount <= 0 {
		amount = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.state.AvailableSkills[name]
	if !exists {
		info = SkillInfo{Attribute: m.fallbackAttribute()}
	}
	info.Experience += amount
	if info.Experience < 0 {
		info.Experience = 0
	}
	m.state.AvailableSkills[name] = info

	m.recomputeLocked()
	if err := m.saveLocked(); err != nil {
		logging.LevelsError("save after add_exp_on_skill failed: %v", err)
	}
	logging.Levels("+%d XP -> skill %q (total=%d)", amount, name, info.Experience)
}

// AttributeLevel returns the current level for an attribute.
func (m *Manager) AttributeLevel(attribute string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return XPToLevel(m.totalXPLocked(attribute))
}

// TotalXP returns the summed experience of all skills feeding an attribute.
func (m *Manager) TotalXP(attribute string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalXPLocked(attribute)
}

// XPToNextLevel returns the XP remaining to the next level, 0 at the cap.
func (m *Manager) XPToNextLevel(attribute string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.totalXPLocked(attribute)
	lvl := XPToLevel(total)
	if lvl >= MaxLevel {
		return 0
	}
	rem := Threshold(lvl+1) - total
	if rem < 0 {
		rem = 0
	}
	return rem
}

// ProgressRatio returns progress within the current level, clamped to [0,1].
func (m *Manager) ProgressRatio(attribute string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.totalXPLocked(attribute)
	lvl := XPToLevel(total)
	if lvl <= 0 {
		return 0
	}
	if lvl >= MaxLevel {
		return 1
	}
	cur := Threshold(lvl)
	next := Threshold(lvl + 1)
	den := next - cur
	if den < 1 {
		den = 1
	}
	ratio := float64(total-cur) / float64(den)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Skills returns a copy of the skill map.
func (m *Manager) Skills() map[string]SkillInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]SkillInfo, len(m.state.AvailableSkills))
	for k, v := range m.state.AvailableSkills {
		out[k] = v
	}
	return out
}

// AttributeLevels returns a copy of the derived attribute level map.
func (m *Manager) AttributeLevels() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.state.AttributesXP))
	for k, v := range m.state.AttributesXP {
		out[k] = v
	}
	return out
}

// Snapshot builds the full read surface in one locked pass.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{Skills: make(map[string]SkillInfo, len(m.state.AvailableSkills))}
	for k, v := range m.state.AvailableSkills {
		snap.Skills[k] = v
	}
	for _, attr := range m.attributes {
		total := m.totalXPLocked(attr)
		lvl := XPToLevel(total)
		toNext := 0
		ratio := 1.0
		if lvl < MaxLevel {
			toNext = Threshold(lvl+1) - total
			den := Threshold(lvl+1) - Threshold(lvl)
			if den < 1 {
				den = 1
			}
			ratio = float64(total-Threshold(lvl)) / float64(den)
			if ratio < 0 {
				ratio = 0
			}
			if lvl == 0 {
				ratio = 0
			}
		}
		snap.Attributes = append(snap.Attributes, AttributeProgress{
			Name:          attr,
			Level:         lvl,
			TotalXP:       total,
			XPToNextLevel: toNext,
			ProgressRatio: ratio,
		})
	}
	return snap
}

// --- internals ---

func (m *Manager) defaultState() userLevels {
	s := userLevels{
		AttributesXP:    make(map[string]int, len(m.attributes)),
		AvailableSkills: make(map[string]SkillInfo),
	}
	for _, a := range m.attributes {
		s.AttributesXP[a] = 0
	}
	return s
}

func (m *Manager) ensureAttributesPresent() {
	if m.state.AttributesXP == nil {
		m.state.AttributesXP = make(map[string]int, len(m.attributes))
	}
	if m.state.AvailableSkills == nil {
		m.state.AvailableSkills = make(map[string]SkillInfo)
	}
	for _, a := range m.attributes {
		if _, ok := m.state.AttributesXP[a]; !ok {
			m.state.AttributesXP[a] = 0
		}
	}
}

// fallbackAttribute is the deterministic default when a skill arrives without
// an attribute: the first configured one.
func (m *Manager) fallbackAttribute() string {
	if len(m.attributes) > 0 {
		return m.attributes[0]
	}
	return "Intelligence"
}

// findAttributeKey matches a skill's attribute field against the configured
// list, case-insensitively.
func (m *Manager) findAttributeKey(name string) string {
	for _, a := range m.attributes {
		if strings.EqualFold(a, name) {
			return a
		}
	}
	return ""
}

func (m *Manager) totalXPLocked(attribute string) int {
	key := m.findAttributeKey(attribute)
	if key == "" {
		key = attribute
	}
	sum := 0
	for _, info := range m.state.AvailableSkills {
		if strings.EqualFold(info.Attribute, key) && info.Experience > 0 {
			sum += info.Experience
		}
	}
	return sum
}

// recomputeLocked rederives every attribute level from current skill XP.
// Level is a pure function of the skill map; recomputing from scratch is
// always safe.
func (m *Manager) recomputeLocked() {
	for _, attr := range m.attributes {
		m.state.AttributesXP[attr] = XPToLevel(m.totalXPLocked(attr))
	}
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create levels directory: %w", err)
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}
	return nil
}
