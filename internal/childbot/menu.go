package childbot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/session"
	"github.com/bekzod-dev/botforge/pkg/metrics"
)

const (
	contestJoinPrefix   = "contest_join_"
	contestSubmitPrefix = "contest_submit_"
)

// sendMainMenu shows the three-button menu once the gate has been passed.
func (b *Bot) sendMainMenu(c telebot.Context, settings *domain.BotSettings) error {
	text := settings.PhonePostMessage
	if settings.WelcomeMessage != "" {
		text = settings.WelcomeMessage
	}

	if settings.WelcomeMedia != "" {
		return c.Send(mediaWithCaption(settings.WelcomeMedia, settings.WelcomeMediaType, text), b.mainMenuMarkup())
	}

	return c.Send(text, b.mainMenuMarkup())
}

func (b *Bot) mainMenuMarkup() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Text(b.deps.Translator.T("menu.contests"))),
		markup.Row(markup.Text(b.deps.Translator.T("menu.referrals"))),
		markup.Row(markup.Text(b.deps.Translator.T("menu.guide"))),
	)
	return markup
}

// handleText serves menu presses. Anyone who has not finished onboarding is
// pushed back into the gate instead.
func (b *Bot) handleText(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	metrics.RecordChildUpdate("text")

	u, err := b.track(ctx, sender)
	if err != nil {
		return err
	}

	settings, err := b.botSettings(ctx)
	if err != nil {
		return err
	}

	sess, err := b.deps.Sessions.Get(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}

	gated := sender.ID != b.meta.OwnerID && !settings.IsAdmin(sender.ID)
	if gated && sess.Step != session.StepDone {
		return b.advance(c, sess, settings)
	}

	tr := b.deps.Translator
	switch c.Text() {
	case tr.T("menu.contests"):
		return b.sendContests(c)
	case tr.T("menu.referrals"):
		return b.sendReferralInfo(c, settings)
	case tr.T("menu.guide"):
		return b.sendGuide(c, settings)
	default:
		if sess.ContestID != 0 {
			return b.storeSubmission(c, sess, u)
		}
		return nil
	}
}

func (b *Bot) sendContests(c telebot.Context) error {
	ctx := context.Background()

	contests, err := b.deps.Contests.ListActive(ctx, b.meta.ID)
	if err != nil {
		return err
	}

	if len(contests) == 0 {
		return c.Send(b.deps.Translator.T("menu.no_contests"))
	}

	for _, contest := range contests {
		id := strconv.FormatInt(contest.ID, 10)
		markup := &telebot.ReplyMarkup{}
		markup.InlineKeyboard = [][]telebot.InlineButton{{
			{Text: b.deps.Translator.T("menu.join_contest_button"), Data: contestJoinPrefix + id},
			{Text: b.deps.Translator.T("menu.submit_button"), Data: contestSubmitPrefix + id},
		}}

		if err := c.Send(formatContest(&contest), markup); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bot) handleContestJoin(c telebot.Context, rawID string) error {
	sender := c.Sender()
	ctx := context.Background()

	contestID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contest id %q: %w", rawID, err)
	}

	contest, err := b.deps.Contests.FindByID(ctx, contestID)
	if err != nil {
		return err
	}

	tr := b.deps.Translator
	if contest.BotID != b.meta.ID || !contest.Open(time.Now()) {
		return c.Respond(&telebot.CallbackResponse{Text: tr.T("menu.contest_closed"), ShowAlert: true})
	}

	u, err := b.deps.Users.FindByTelegramID(ctx, sender.ID)
	if err != nil {
		return err
	}

	joined, err := b.deps.Contests.Join(ctx, contestID, u.ID)
	if err != nil {
		return err
	}

	text := tr.T("menu.contest_already")
	if joined {
		text = tr.T("menu.contest_joined")
		b.log.Info("contest joined", slog.Int64("contest_id", contestID), slog.Int64("user_id", sender.ID))
	}

	return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: true})
}

// handleContestSubmit arms the session so the next message becomes an entry.
func (b *Bot) handleContestSubmit(c telebot.Context, rawID string) error {
	sender := c.Sender()
	ctx := context.Background()

	contestID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contest id %q: %w", rawID, err)
	}

	tr := b.deps.Translator

	contest, err := b.deps.Contests.FindByID(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.BotID != b.meta.ID || !contest.Open(time.Now()) {
		return c.Respond(&telebot.CallbackResponse{Text: tr.T("menu.contest_closed"), ShowAlert: true})
	}

	u, err := b.deps.Users.FindByTelegramID(ctx, sender.ID)
	if err != nil {
		return err
	}

	joined, err := b.deps.Contests.IsParticipant(ctx, contestID, u.ID)
	if err != nil {
		return err
	}
	if !joined {
		return c.Respond(&telebot.CallbackResponse{Text: tr.T("menu.join_first"), ShowAlert: true})
	}

	settings, err := b.botSettings(ctx)
	if err != nil {
		return err
	}

	count, err := b.deps.Contests.CountSubmissions(ctx, contestID, u.ID)
	if err != nil {
		return err
	}
	if settings.MaxSubmissionsPerUser > 0 && count >= int64(settings.MaxSubmissionsPerUser) {
		return c.Respond(&telebot.CallbackResponse{Text: tr.T("menu.submission_limit"), ShowAlert: true})
	}

	sess, err := b.deps.Sessions.Get(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}
	sess.ContestID = contestID
	if err := b.deps.Sessions.Save(ctx, sess); err != nil {
		return err
	}

	if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
		b.log.Warn("callback ack failed", slog.Any("error", err))
	}
	return c.Send(tr.T("menu.send_submission"))
}

// handleMedia stores photo and video messages as contest entries when the
// sender has an armed submission, and ignores them otherwise.
func (b *Bot) handleMedia(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	metrics.RecordChildUpdate("media")

	u, err := b.track(ctx, sender)
	if err != nil {
		return err
	}

	sess, err := b.deps.Sessions.Get(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}
	if sess.ContestID == 0 {
		return nil
	}

	return b.storeSubmission(c, sess, u)
}

// storeSubmission persists the armed contest entry from the current message.
func (b *Bot) storeSubmission(c telebot.Context, sess *session.Session, u *domain.User) error {
	ctx := context.Background()
	tr := b.deps.Translator
	msg := c.Message()

	var content, mediaID, mediaType string
	switch {
	case msg.Photo != nil:
		content = msg.Caption
		mediaID = msg.Photo.FileID
		mediaType = "photo"
	case msg.Video != nil:
		content = msg.Caption
		mediaID = msg.Video.FileID
		mediaType = "video"
	default:
		content = strings.TrimSpace(msg.Text)
	}
	if content == "" && mediaID == "" {
		return c.Send(tr.T("menu.submission_empty"))
	}

	contest, err := b.deps.Contests.FindByID(ctx, sess.ContestID)
	if err != nil {
		return err
	}
	if contest.BotID != b.meta.ID || !contest.Open(time.Now()) {
		sess.ContestID = 0
		if err := b.deps.Sessions.Save(ctx, sess); err != nil {
			return err
		}
		return c.Send(tr.T("menu.contest_closed"))
	}

	settings, err := b.botSettings(ctx)
	if err != nil {
		return err
	}

	status := domain.SubmissionPending
	if settings.AutoApprove {
		status = domain.SubmissionApproved
	}

	stored, err := b.deps.Contests.AddSubmission(ctx, &domain.Submission{
		ContestID: sess.ContestID,
		UserID:    u.ID,
		Content:   content,
		MediaID:   mediaID,
		MediaType: mediaType,
		Status:    status,
	})
	if err != nil {
		return err
	}

	sess.ContestID = 0
	if err := b.deps.Sessions.Save(ctx, sess); err != nil {
		return err
	}

	b.log.Info("submission stored",
		slog.Int64("contest_id", stored.ContestID),
		slog.Int64("submission_id", stored.ID),
		slog.Int64("user_id", c.Sender().ID))

	if status == domain.SubmissionApproved {
		return c.Send(tr.T("menu.submission_received"))
	}
	return c.Send(tr.T("menu.submission_pending"))
}

func (b *Bot) sendReferralInfo(c telebot.Context, settings *domain.BotSettings) error {
	sender := c.Sender()
	ctx := context.Background()

	if !settings.ReferralEnabled {
		return c.Send(settings.ReferralMessage)
	}

	count, err := b.deps.Referrals.Count(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}

	text := strings.NewReplacer(
		"{link}", b.meta.ReferralLink(sender.ID),
		"{count}", strconv.FormatInt(count, 10),
	).Replace(settings.ReferralShareText)

	if settings.ReferralShareMedia != "" {
		if err := c.Send(mediaWithCaption(settings.ReferralShareMedia, settings.ReferralShareMediaType, text)); err != nil {
			return err
		}
	} else if err := c.Send(text); err != nil {
		return err
	}

	return c.Send(settings.ReferralFollowupText)
}

func (b *Bot) sendGuide(c telebot.Context, settings *domain.BotSettings) error {
	text := settings.GuideText
	if text == "" && settings.GuideMedia == "" {
		return c.Send(b.deps.Translator.T("menu.guide_missing"))
	}

	if settings.GuideMedia != "" {
		return c.Send(mediaWithCaption(settings.GuideMedia, settings.GuideMediaType, text))
	}

	return c.Send(text)
}

func formatContest(contest *domain.Contest) string {
	var sb strings.Builder
	sb.WriteString("🏆 ")
	sb.WriteString(contest.Title)
	if contest.Description != "" {
		sb.WriteString("\n\n")
		sb.WriteString(contest.Description)
	}
	if contest.Prize != "" {
		sb.WriteString("\n\n🎁 ")
		sb.WriteString(contest.Prize)
	}
	if !contest.EndsAt.IsZero() {
		sb.WriteString("\n⏳ ")
		sb.WriteString(contest.EndsAt.Format("02.01.2006 15:04"))
	}
	return sb.String()
}

// mediaWithCaption rebuilds a sendable from a stored file id.
func mediaWithCaption(fileID, mediaType, caption string) interface{} {
	switch mediaType {
	case "video":
		return &telebot.Video{File: telebot.File{FileID: fileID}, Caption: caption}
	default:
		return &telebot.Photo{File: telebot.File{FileID: fileID}, Caption: caption}
	}
}
