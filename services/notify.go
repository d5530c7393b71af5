package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"avitowatch/models"
)

// Notifier receives the orchestrator's per-criterion outcomes. The chat
// frontend itself lives outside this process; delivery is one API call.
type Notifier interface {
	NewListingFound(ctx context.Context, criterion *models.SearchCriterion, listing *models.CanonicalListing) error
	NoNewListings(ctx context.Context, criterion *models.SearchCriterion) error
}

// TelegramNotifier delivers via the Telegram Bot API.
type TelegramNotifier struct {
	token  string
	client *http.Client
}

func NewTelegramNotifier(token string, client *http.Client) *TelegramNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramNotifier{token: token, client: client}
}

func newListingMessage(criterion *models.SearchCriterion, listing *models.CanonicalListing) string {
	return fmt.Sprintf(
		"🔎 <b>%s</b>\n<b>%s</b>\n💰 %d₽\n📍 %s\n👉 <a href=\"%s\">Ссылка</a>",
		criterion.Keyword, listing.Title, listing.Price, listing.Location, listing.NormalizedURL,
	)
}

func noNewListingsMessage(criterion *models.SearchCriterion) string {
	return fmt.Sprintf("🔁 По фильтру \"%s\" новых объявлений нет.", criterion.Keyword)
}

func (n *TelegramNotifier) NewListingFound(ctx context.Context, criterion *models.SearchCriterion, listing *models.CanonicalListing) error {
	return n.sendMessage(ctx, criterion.OwnerID, newListingMessage(criterion, listing))
}

func (n *TelegramNotifier) NoNewListings(ctx context.Context, criterion *models.SearchCriterion) error {
	return n.sendMessage(ctx, criterion.OwnerID, noNewListingsMessage(criterion))
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// LogNotifier is used when no bot token is configured; events land in the
// daemon log only.
type LogNotifier struct{}

func (LogNotifier) NewListingFound(ctx context.Context, criterion *models.SearchCriterion, listing *models.CanonicalListing) error {
	log.Printf("New listing for criterion %d (%s): %s %d₽ %s",
		criterion.ID, criterion.Keyword, listing.Title, listing.Price, listing.NormalizedURL)
	return nil
}

func (LogNotifier) NoNewListings(ctx context.Context, criterion *models.SearchCriterion) error {
	log.Printf("No new listings for criterion %d (%s)", criterion.ID, criterion.Keyword)
	return nil
}
