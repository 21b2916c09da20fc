package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/ai"
	"storefront/internal/util"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	msgTryAgain      = "Our assistant is getting a lot of questions right now. Please try again in a moment."
	msgAssistantDown = "Sorry, the assistant could not answer right now."
	maxInventory     = 200
)

type ChatbotInput struct {
	Question string `json:"question" validate:"required,max=1000"`
}

type ChatbotOutput struct {
	Answer string `json:"answer" validate:"required"`
}

type RecommendationsInput struct {
	UserPreferences  string   `json:"userPreferences" validate:"required,max=1000"`
	BrowsingHistory  []string `json:"browsingHistory" validate:"max=50,dive,max=200"`
	TrendingProducts []string `json:"trendingProducts" validate:"max=50,dive,max=200"`
}

type RecommendationsOutput struct {
	RecommendedProducts []string `json:"recommendedProducts" validate:"required,dive,required"`
	Reasoning           string   `json:"reasoning" validate:"required"`
}

// AssistantService runs the product chatbot and recommendation flows
type AssistantService struct {
	generator ai.Generator
	catalog   *ProductService
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewAssistantService creates the service; a nil generator leaves the assistant unavailable
func NewAssistantService(generator ai.Generator, catalog *ProductService) *AssistantService {
	return &AssistantService{
		generator: generator,
		catalog:   catalog,
		validate:  validator.New(),
		logger:    util.GetLogger(),
	}
}

// Available reports whether a model is configured
func (s *AssistantService) Available() bool {
	return s.generator != nil
}

// ProductChatbot answers a question about the live catalog
func (s *AssistantService) ProductChatbot(ctx context.Context, in ChatbotInput) (*ChatbotOutput, error) {
	ctx, span := util.StartSpan(ctx, "AssistantService.ProductChatbot")
	defer span.End()

	in.Question = strings.TrimSpace(in.Question)
	if err := s.validate.Struct(in); err != nil {
		return nil, invalid("please enter a question")
	}

	products := s.catalog.GetProducts(ctx)
	if len(products) > maxInventory {
		products = products[:maxInventory]
	}
	inventory := make([]ai.InventoryLine, 0, len(products))
	for _, p := range products {
		inventory = append(inventory, ai.InventoryLine{
			Name:        p.Name,
			Category:    p.Category,
			Brand:       p.Brand,
			Price:       p.Price,
			Stock:       p.Stock,
			Description: p.Description,
		})
	}

	prompt, err := ai.RenderChatbotPrompt(ai.ChatbotPromptData{Question: in.Question, Inventory: inventory})
	if err != nil {
		return nil, fmt.Errorf("failed to render chatbot prompt: %w", err)
	}

	var out ChatbotOutput
	if err := s.run(ctx, "chatbot", prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProductRecommendations suggests products from preferences, history and trends
func (s *AssistantService) GetProductRecommendations(ctx context.Context, in RecommendationsInput) (*RecommendationsOutput, error) {
	ctx, span := util.StartSpan(ctx, "AssistantService.GetProductRecommendations")
	defer span.End()

	in.UserPreferences = strings.TrimSpace(in.UserPreferences)
	if err := s.validate.Struct(in); err != nil {
		return nil, invalid("please describe your preferences")
	}

	prompt, err := ai.RenderRecommendationsPrompt(ai.RecommendationsPromptData{
		UserPreferences:  in.UserPreferences,
		BrowsingHistory:  in.BrowsingHistory,
		TrendingProducts: in.TrendingProducts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render recommendations prompt: %w", err)
	}

	var out RecommendationsOutput
	if err := s.run(ctx, "recommendations", prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// run calls the model and validates the answer against out's schema
func (s *AssistantService) run(ctx context.Context, flow, prompt string, out interface{}) error {
	if s.generator == nil {
		util.AssistantRequestsTotal.WithLabelValues(flow, "unavailable").Inc()
		return &RuleError{Kind: ErrUnavailable, Message: "the assistant is not available"}
	}

	start := time.Now()
	err := s.generator.Generate(ctx, prompt, out)
	util.AssistantLatency.WithLabelValues(flow).Observe(time.Since(start).Seconds())

	if err == nil {
		if verr := s.validate.Struct(out); verr != nil {
			err = fmt.Errorf("model answer failed validation: %w", verr)
		}
	}

	switch {
	case err == nil:
		util.AssistantRequestsTotal.WithLabelValues(flow, "ok").Inc()
		return nil
	case errors.Is(err, ai.ErrRateLimited):
		util.AssistantRequestsTotal.WithLabelValues(flow, "rate_limited").Inc()
		s.logger.Warn("Assistant rate limited", zap.String("flow", flow))
		return &RuleError{Kind: ErrRateLimited, Message: msgTryAgain}
	default:
		util.AssistantRequestsTotal.WithLabelValues(flow, "error").Inc()
		s.logger.Error("Assistant flow failed", zap.String("flow", flow), zap.Error(err))
		return &RuleError{Kind: ErrUpstream, Message: msgAssistantDown}
	}
}
