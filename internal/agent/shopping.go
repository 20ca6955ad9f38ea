package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

const shoppingSystemPrompt = `You are an intelligent assistant that extracts shopping-related information from emails.
Your task is to identify and save bills and coupons from transactional or promotional emails.

- For bills, extract the vendor, amount, currency, due date, and a payment URL.
- For coupons, extract the vendor, coupon code, a description of the discount, and the expiry date.

An email might contain multiple bills or coupons. You must identify all of them.
If any required information is missing, make a reasonable inference based on the context, but do not hallucinate.

Respond with ONLY a JSON object, no prose, in this exact shape (all timestamps RFC 3339, empty arrays when nothing applies):
{
  "bills": [{"vendor": "", "amount": 0, "currency": "USD", "due_date": null, "payment_url": "", "description": "", "category": "utilities|subscription|shopping|other", "priority": "low|medium|high"}],
  "coupons": [{"vendor": "", "code": "", "discount": "", "offer_url": "", "expiry_date": null, "description": "", "category": "", "priority": ""}]
}`

// ShoppingExtractor finds bills and coupons.
type ShoppingExtractor struct {
	llm Invoker
}

// NewShoppingExtractor wires the shopping agent.
func NewShoppingExtractor(llm Invoker) *ShoppingExtractor {
	return &ShoppingExtractor{llm: llm}
}

// Name identifies the agent in aggregated error messages.
func (e *ShoppingExtractor) Name() string { return "Shopping" }

// Extract runs the agent over the thread text.
func (e *ShoppingExtractor) Extract(ctx context.Context, threadText string) (*ShoppingResult, error) {
	raw, err := e.llm.Invoke(ctx, shoppingSystemPrompt, threadText)
	if err != nil {
		return nil, err
	}
	var result ShoppingResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("shopping agent returned unparseable output: %w", err)
	}
	return &result, nil
}
