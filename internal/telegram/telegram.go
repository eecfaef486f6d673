// Package telegram formats spending summaries and delivers them to a
// Telegram chat.
package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/currencyutils"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"
)

// Use the centralized logger from config package
var log = config.Logger

// SetLogger allows setting a custom logger
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Notifier sends summary messages to one chat.
type Notifier struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	grafanaURL string
}

// NewNotifier creates a Notifier for the given bot token and chat.
func NewNotifier(botToken string, chatID int64, grafanaURL string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID, grafanaURL: grafanaURL}, nil
}

// SendDaily delivers a daily summary.
func (n *Notifier) SendDaily(summary *models.DailySummary) error {
	return n.send(FormatDaily(summary, n.grafanaURL))
}

// SendMonthly delivers a monthly summary.
func (n *Notifier) SendMonthly(summary *models.MonthlySummary) error {
	return n.send(FormatMonthly(summary, n.grafanaURL))
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	log.Debug("Telegram message sent")
	return nil
}

// FormatDaily renders a daily summary as a Telegram HTML message.
func FormatDaily(s *models.DailySummary, grafanaURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>🗓 Daily Summary — %s\n\n💸 Spent: %s</b>\n",
		s.Date.Format("02.01.2006"),
		currencyutils.FormatAmount(s.TotalSpent, s.Currency))

	if len(s.Transactions) > 0 {
		b.WriteString("\n")
		for _, tx := range s.Transactions {
			fmt.Fprintf(&b, "• %s: -%s\n", tx.CounterpartyName, currencyutils.FormatAmount(tx.Amount, tx.Currency))
		}
	}

	if grafanaURL != "" {
		fmt.Fprintf(&b, "\n📊 <a href=\"%s&from=now-1d&to=now\">Dashboard</a>", grafanaURL)
	}

	return b.String()
}

// FormatMonthly renders a monthly summary as a Telegram HTML message.
func FormatMonthly(s *models.MonthlySummary, grafanaURL string) string {
	var b strings.Builder

	year, month := splitMonth(s.Month)
	fmt.Fprintf(&b, "<b>🗓 Monthly Summary — %s.%s\n\n", month, year)
	fmt.Fprintf(&b, "💸 Spent: %s\n", currencyutils.FormatAmount(s.TotalSpent, s.Currency))
	fmt.Fprintf(&b, "💰 Received: %s</b>\n", currencyutils.FormatAmount(s.TotalReceived, s.Currency))

	if len(s.TopCounterparties) > 0 {
		b.WriteString("\n🏪 Top spending:\n")
		for _, cp := range s.TopCounterparties {
			fmt.Fprintf(&b, "• %s: -%s\n", cp.Name, currencyutils.FormatAmount(cp.Total, s.Currency))
		}
	}

	if grafanaURL != "" {
		fmt.Fprintf(&b, "\n📊 <a href=\"%s\">Dashboard</a>", monthDashboardURL(grafanaURL, s.Month))
	}

	return b.String()
}

// splitMonth splits a YYYY-MM month key into its parts.
func splitMonth(month string) (string, string) {
	parts := strings.SplitN(month, "-", 2)
	if len(parts) != 2 {
		return month, ""
	}
	return parts[0], parts[1]
}

// monthDashboardURL scopes the dashboard link to the summarized month
// using epoch-millisecond range parameters.
func monthDashboardURL(grafanaURL, month string) string {
	start, err := time.Parse(dateutils.DateLayoutMonth, month)
	if err != nil {
		return grafanaURL
	}
	end := dateutils.NextMonth(start)
	return fmt.Sprintf("%s&from=%d&to=%d", grafanaURL, start.UnixMilli(), end.UnixMilli())
}
