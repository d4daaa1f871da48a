package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/ratelimit"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/state"
	"github.com/bekzod-dev/botforge/internal/validate"
)

// winnerDrawCount is how many participants the prize draw picks.
const winnerDrawCount = 3

// NewContestsHandler lists a bot's contests with their management buttons.
func NewContestsHandler(bots repository.BotRepository, contests repository.ContestRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_contests_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		list, err := contests.ListByBot(ctx, botID)
		if err != nil {
			return err
		}

		title := tr.T("manage.contests_title")
		if len(list) == 0 {
			title = tr.T("manage.no_contests")
		}

		respond(c)
		return editOrSend(c, title, kb.ContestList(botID, list))
	}
}

// NewContestNewHandler asks the owner to describe a new contest.
func NewContestNewHandler(fsm state.StateMachine, bots repository.BotRepository, limiter ActionLimiter, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "contest_new_")
		if err != nil {
			return err
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if limiter != nil {
			if err := limiter.CheckAction(ctx, userID, ratelimit.ActionContestCreation); err != nil {
				return err
			}
		}

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		data := map[string]interface{}{"bot_id": strconv.FormatInt(botID, 10)}
		if err := fsm.SetState(ctx, userID, state.StateAwaitingContest, data); err != nil {
			return err
		}

		respond(c)
		return c.Send(tr.T("builder.send_contest"))
	}
}

// NewContestInputHandler parses the contest description and creates it.
// The expected format is "title | prize | days", prize and days optional.
func NewContestInputHandler(fsm state.StateMachine, bots repository.BotRepository, contests repository.ContestRepository, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		title, prize, days, ok := parseContestInput(c.Text())
		if !ok {
			return c.Send(tr.T("builder.invalid_contest"))
		}

		st, err := fsm.GetState(ctx, userID)
		if err != nil {
			return err
		}

		rawID, _ := st.Context["bot_id"].(string)
		botID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return apperrors.NewStateError("contest flow lost its bot id")
		}

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		contest := &domain.Contest{
			BotID:    botID,
			Title:    title,
			Prize:    prize,
			Status:   domain.ContestActive,
			StartsAt: time.Now(),
		}
		if days > 0 {
			contest.EndsAt = time.Now().AddDate(0, 0, days)
		}

		created, err := contests.Create(ctx, contest)
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		log.Info("contest created", slog.Int64("bot_id", botID), slog.Int64("contest_id", created.ID))
		return c.Send(fmt.Sprintf(tr.T("builder.contest_created"), created.Title))
	}
}

// NewContestEndHandler closes a running contest.
func NewContestEndHandler(bots repository.BotRepository, contests repository.ContestRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, contestID, err := callbackIDPair(c, "contest_end_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		contest, err := contests.FindByID(ctx, contestID)
		if err != nil {
			return err
		}
		if contest.BotID != botID {
			return apperrors.NewValidationError("contest belongs to another bot", tr.T("common.error"))
		}

		if err := contests.SetStatus(ctx, contestID, domain.ContestFinished); err != nil {
			return apperrors.NewDatabaseError(err)
		}

		log.Info("contest ended", slog.Int64("bot_id", botID), slog.Int64("contest_id", contestID))

		list, err := contests.ListByBot(ctx, botID)
		if err != nil {
			return err
		}

		respond(c)
		return editOrSend(c, tr.T("builder.contest_ended"), kb.ContestList(botID, list))
	}
}

// NewContestWinnersHandler shows recorded winners, drawing them from the
// participants first when the contest has none yet.
func NewContestWinnersHandler(bots repository.BotRepository, contests repository.ContestRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, contestID, err := callbackIDPair(c, "contest_win_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		contest, err := contests.FindByID(ctx, contestID)
		if err != nil {
			return err
		}
		if contest.BotID != botID {
			return apperrors.NewValidationError("contest belongs to another bot", tr.T("common.error"))
		}

		winners, err := contests.ListWinners(ctx, contestID)
		if err != nil {
			return err
		}

		if len(winners) == 0 {
			drawn, err := contests.RandomParticipants(ctx, contestID, winnerDrawCount)
			if err != nil {
				return err
			}
			if len(drawn) == 0 {
				respond(c)
				return editOrSend(c, tr.T("builder.no_participants"), kb.BackToBot(botID))
			}

			for place, userID := range drawn {
				w := &domain.Winner{
					ContestID: contestID,
					UserID:    userID,
					Place:     place + 1,
					Prize:     contest.Prize,
				}
				if err := contests.AddWinner(ctx, w); err != nil {
					return apperrors.NewDatabaseError(err)
				}
			}

			log.Info("contest winners drawn",
				slog.Int64("contest_id", contestID),
				slog.Int("count", len(drawn)))

			winners, err = contests.ListWinners(ctx, contestID)
			if err != nil {
				return err
			}
		}

		respond(c)
		return editOrSend(c, formatWinners(tr, contest, winners), kb.BackToBot(botID))
	}
}

// parseContestInput splits "title | prize | days" into its parts.
func parseContestInput(text string) (title, prize string, days int, ok bool) {
	parts := strings.Split(text, "|")
	if len(parts) > 3 {
		return "", "", 0, false
	}

	title = strings.TrimSpace(parts[0])
	if !validate.Title(title) {
		return "", "", 0, false
	}

	if len(parts) > 1 {
		prize = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		raw := strings.TrimSpace(parts[2])
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			return "", "", 0, false
		}
		days = n
	}

	return title, prize, days, true
}

// formatWinners renders the winner list with medal markers.
func formatWinners(tr i18n.Translator, contest *domain.Contest, winners []domain.Winner) string {
	medals := [...]string{"🥇", "🥈", "🥉"}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(tr.T("builder.winners_title"), contest.Title))
	for _, w := range winners {
		marker := "🏅"
		if w.Place >= 1 && w.Place <= len(medals) {
			marker = medals[w.Place-1]
		}

		name := w.FirstName
		if w.Username != "" {
			name += " (@" + w.Username + ")"
		}

		sb.WriteString("\n")
		sb.WriteString(marker)
		sb.WriteString(" ")
		sb.WriteString(name)
	}
	return sb.String()
}
