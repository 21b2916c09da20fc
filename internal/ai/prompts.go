package ai

import (
	"strings"
	"text/template"
)

const chatbotPrompt = `You are the shopping assistant of Earth Puran, a natural beauty and wellness store.
Answer the customer's question using only the inventory below. If a product is not listed, say we do not carry it.
Mention prices in rupees and say when something is out of stock. Keep the answer under 120 words.

Inventory:
{{range .Inventory}}- {{.Name}} ({{.Category}}{{if .Brand}}, {{.Brand}}{{end}}): Rs. {{printf "%.2f" .Price}}, {{if gt .Stock 0}}{{.Stock}} in stock{{else}}out of stock{{end}}{{if .Description}}. {{.Description}}{{end}}
{{else}}(no products available)
{{end}}
Customer question: {{.Question}}

Reply with JSON: {"answer": "<your answer>"}`

const recommendationsPrompt = `You recommend products for Earth Puran customers.

Customer preferences: {{.UserPreferences}}
Recently viewed: {{join .BrowsingHistory}}
Trending now: {{join .TrendingProducts}}

Pick up to 5 product names the customer is most likely to enjoy, favouring trending products that match their preferences.

Reply with JSON: {"recommendedProducts": ["<product name>", ...], "reasoning": "<one short paragraph>"}`

var funcs = template.FuncMap{
	"join": func(items []string) string {
		if len(items) == 0 {
			return "none"
		}
		return strings.Join(items, ", ")
	},
}

var (
	chatbotTmpl         = template.Must(template.New("chatbot").Funcs(funcs).Parse(chatbotPrompt))
	recommendationsTmpl = template.Must(template.New("recommendations").Funcs(funcs).Parse(recommendationsPrompt))
)

// InventoryLine is one product as shown to the model
type InventoryLine struct {
	Name        string
	Category    string
	Brand       string
	Price       float64
	Stock       int
	Description string
}

type ChatbotPromptData struct {
	Question  string
	Inventory []InventoryLine
}

type RecommendationsPromptData struct {
	UserPreferences  string
	BrowsingHistory  []string
	TrendingProducts []string
}

func RenderChatbotPrompt(data ChatbotPromptData) (string, error) {
	var b strings.Builder
	if err := chatbotTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func RenderRecommendationsPrompt(data RecommendationsPromptData) (string, error) {
	var b strings.Builder
	if err := recommendationsTmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
