package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/service"
)

// Sweeper settles expired commitments on demand.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// MessageSender is the part of the Telegram client the bot replies through.
type MessageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// AdminBot answers operator commands in Telegram.
type AdminBot struct {
	bot      *telego.Bot
	sender   MessageSender
	admin    *service.AdminService
	sweeper  Sweeper
	adminIDs []int64
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewAdminBot creates a new admin bot
func NewAdminBot(token string, admin *service.AdminService, sweeper Sweeper, adminIDs []int64) (*AdminBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin bot: %w", err)
	}
	b := newAdminBot(bot, admin, sweeper, adminIDs)
	b.bot = bot
	return b, nil
}

func newAdminBot(sender MessageSender, admin *service.AdminService, sweeper Sweeper, adminIDs []int64) *AdminBot {
	return &AdminBot{
		sender:   sender,
		admin:    admin,
		sweeper:  sweeper,
		adminIDs: adminIDs,
		log:      logger.Component("admin_bot"),
	}
}

// Start long-polls for commands until ctx is cancelled.
func (b *AdminBot) Start(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: 60})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}
	b.log.Info("starting bot update loop", "admins", len(b.adminIDs))

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopping bot update loop")
			b.wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wait()
				return nil
			}
			b.wg.Add(1)
			go func(u telego.Update) {
				defer b.wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// wait gives in-flight handlers a bounded time to finish.
func (b *AdminBot) wait() {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

// HandleUpdate replies to a command from an admin and ignores everything else.
func (b *AdminBot) HandleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !b.isAdmin(msg.From.ID) {
		return
	}
	cmd, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	response := b.handleCommand(ctx, cmd, args)
	if _, err := b.sender.SendMessage(ctx, tu.Message(tu.ID(msg.Chat.ID), response).WithParseMode(telego.ModeHTML)); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// isAdmin checks if user is an admin
func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// parseCommand splits "/cmd@bot args" into its command and arguments.
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	cmd, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args), cmd != ""
}

func (b *AdminBot) handleCommand(ctx context.Context, cmd, args string) string {
	switch cmd {
	case "start", "help":
		return helpMessage
	case "stats":
		return b.handleStats(ctx)
	case "user":
		return b.handleUser(ctx, args)
	case "sweep":
		return b.handleSweep(ctx)
	default:
		return "❌ Unknown command. Use /help for the list of commands."
	}
}

const helpMessage = `<b>🤖 Operator commands</b>

/stats - Accounts and commitments overview
/user &lt;id|@username|referral code&gt; - Account details
/sweep - Settle every expired commitment now`

func (b *AdminBot) handleStats(ctx context.Context) string {
	st, err := b.admin.GetStats(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Error: %s", html.EscapeString(err.Error()))
	}

	return fmt.Sprintf(`<b>📊 Platform statistics</b>

<b>👥 Accounts:</b>
• Total: %d
• Wallets locked: %d
• Referred: %d
• Unused bonuses: %d

<b>💸 Investments:</b>
• Running: %d
• Awaiting settlement: %d
• Completed: %d

<b>⛏️ Mining:</b>
• Running: %d
• Awaiting settlement: %d
• Completed: %d`,
		st.TotalUsers,
		st.WalletsLocked,
		st.ReferredUsers,
		st.BonusesHeld,
		st.ActiveInvestments,
		st.PendingInvestments,
		st.CompletedInvestments,
		st.ActiveMining,
		st.PendingMining,
		st.CompletedMining,
	)
}

func (b *AdminBot) handleUser(ctx context.Context, args string) string {
	if args == "" {
		return "❌ Usage: /user &lt;id|@username|referral code&gt;"
	}

	info, err := b.admin.GetUser(ctx, args)
	if err != nil {
		return fmt.Sprintf("❌ User not found: %s", html.EscapeString(err.Error()))
	}
	u := info.User

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>👤 Account</b>\n\n")
	fmt.Fprintf(&sb, "• ID: <code>%s</code>\n", html.EscapeString(u.ID))
	fmt.Fprintf(&sb, "• Username: @%s\n", html.EscapeString(u.Username))
	fmt.Fprintf(&sb, "• Email: %s\n", html.EscapeString(u.Email))
	fmt.Fprintf(&sb, "• Network: %s\n", html.EscapeString(orDash(u.Network)))
	fmt.Fprintf(&sb, "• Wallets locked: %t\n", u.WalletsLocked)
	fmt.Fprintf(&sb, "• Referral code: <code>%s</code>\n", html.EscapeString(u.ReferralCode))
	fmt.Fprintf(&sb, "• Bonuses: %d/%d\n", u.ReferralBonuses, domain.MaxReferralBonuses)
	fmt.Fprintf(&sb, "• Registered: %s\n", u.CreatedAt.Format("02.01.2006 15:04"))

	for _, lane := range domain.Lanes {
		v := info.Lanes[lane]
		fmt.Fprintf(&sb, "\n<b>%s</b>: %s", lane, v.State)
		if v.Commitment != nil {
			fmt.Fprintf(&sb, " (%s", html.EscapeString(v.Commitment.Amount))
			if v.State == domain.LaneActive {
				fmt.Fprintf(&sb, ", %s left", (time.Duration(v.RemainingMs) * time.Millisecond).Round(time.Second))
			}
			sb.WriteString(")")
		}
	}
	return sb.String()
}

func (b *AdminBot) handleSweep(ctx context.Context) string {
	if b.sweeper == nil {
		return "❌ Sweeper is not running."
	}
	n := b.sweeper.Sweep(ctx)
	return fmt.Sprintf("✅ Settled %d expired commitment(s).", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
