package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dutyfinder/dutyfinder-api/models"
)

const (
	maxSuggestions     = 5
	minNameSuggestions = 3
)

// MaterialSuggestion is a stock item that probably fits a work order description
type MaterialSuggestion struct {
	ItemID    string `json:"item_id"`
	Material  string `json:"material"`
	Reason    string `json:"reason"`
	Available int    `json:"available"`
	Unit      string `json:"unit"`
}

// symptomKeyword maps a word found in a problem description to the item categories that usually fix it
type symptomKeyword struct {
	keyword    string
	categories []string
}

// Ordered: the first keywords found fill the suggestion slots first.
var symptomKeywords = []symptomKeyword{
	{"vazamento", []string{"hidráulica", "plumbing"}},
	{"leak", []string{"hidráulica", "plumbing"}},
	{"cano", []string{"hidráulica", "plumbing"}},
	{"pipe", []string{"hidráulica", "plumbing"}},
	{"torneira", []string{"hidráulica", "plumbing"}},
	{"faucet", []string{"hidráulica", "plumbing"}},
	{"lâmpada", []string{"elétrica", "electrical"}},
	{"lamp", []string{"elétrica", "electrical"}},
	{"disjuntor", []string{"elétrica", "electrical"}},
	{"breaker", []string{"elétrica", "electrical"}},
	{"fio", []string{"elétrica", "electrical"}},
	{"wire", []string{"elétrica", "electrical"}},
	{"curto", []string{"elétrica", "electrical"}},
	{"motor", []string{"mecânica", "mechanical"}},
	{"rolamento", []string{"mecânica", "mechanical"}},
	{"bearing", []string{"mecânica", "mechanical"}},
	{"óleo", []string{"lubrificação", "lubrication"}},
	{"oil", []string{"lubrificação", "lubrication"}},
	{"graxa", []string{"lubrificação", "lubrication"}},
	{"grease", []string{"lubrificação", "lubrication"}},
	{"parede", []string{"civil"}},
	{"wall", []string{"civil"}},
	{"pintura", []string{"civil"}},
	{"paint", []string{"civil"}},
	{"porta", []string{"civil"}},
	{"door", []string{"civil"}},
	{"trava", []string{"segurança", "safety"}},
	{"lock", []string{"segurança", "safety"}},
}

// SuggestMaterials proposes up to five stock items for a work order description.
// Items named in the text come first; when fewer than three are found, items of
// the categories associated with symptom keywords fill the remaining slots.
func (s *InventoryService) SuggestMaterials(ctx context.Context, description string) ([]MaterialSuggestion, error) {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return suggestMaterials(description, items), nil
}

func suggestMaterials(description string, items []models.InventoryItem) []MaterialSuggestion {
	desc := strings.ToLower(description)
	suggestions := []MaterialSuggestion{}
	taken := make(map[string]bool)

	add := func(item models.InventoryItem, reason string) {
		if len(suggestions) >= maxSuggestions || taken[item.ID] {
			return
		}
		taken[item.ID] = true
		suggestions = append(suggestions, MaterialSuggestion{
			ItemID:    item.ID,
			Material:  item.Name,
			Reason:    reason,
			Available: item.Quantity,
			Unit:      item.Unit,
		})
	}

	for _, item := range items {
		if mentions(desc, strings.ToLower(item.Name)) {
			add(item, fmt.Sprintf("Mentioned in the description (%d %s available).", item.Quantity, item.Unit))
		}
	}

	if len(suggestions) >= minNameSuggestions {
		return suggestions
	}

	for _, kw := range symptomKeywords {
		if !strings.Contains(desc, kw.keyword) {
			continue
		}
		for _, item := range items {
			if inCategories(item.Category, kw.categories) || strings.Contains(strings.ToLower(item.Name), kw.keyword) {
				add(item, fmt.Sprintf("%s item suggested for %s problems.", item.Category, kw.keyword))
			}
		}
	}
	return suggestions
}

// mentions reports whether desc contains the whole name or any of its words longer than three letters
func mentions(desc, name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(desc, name) {
		return true
	}
	for _, word := range strings.Fields(name) {
		if len([]rune(word)) > 3 && strings.Contains(desc, word) {
			return true
		}
	}
	return false
}

func inCategories(category string, categories []string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range categories {
		if category == c {
			return true
		}
	}
	return false
}
