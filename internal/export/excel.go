// Package export renders bot data as Excel workbooks for owners.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/repository"
)

const (
	audienceSheet  = "Foydalanuvchilar"
	referralsSheet = "Referallar"

	topReferrersLimit = 1000

	// Sheet names are capped at 31 characters by the xlsx format.
	sheetNameLimit = 31
)

// Service builds spreadsheet exports from the persistence layer.
type Service struct {
	botUsers  repository.BotUserRepository
	referrals repository.ReferralRepository
	contests  repository.ContestRepository
	log       *slog.Logger
}

// NewService wires an export service.
func NewService(botUsers repository.BotUserRepository, referrals repository.ReferralRepository, contests repository.ContestRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		botUsers:  botUsers,
		referrals: referrals,
		contests:  contests,
		log:       log,
	}
}

// Audience renders the bot's user base, its referral leaderboard and one
// sheet per contest as a workbook, returning the content with a suggested
// file name.
func (s *Service) Audience(ctx context.Context, bot *domain.Bot) (*bytes.Buffer, string, error) {
	users, err := s.botUsers.ListUsers(ctx, bot.ID)
	if err != nil {
		return nil, "", fmt.Errorf("list audience: %w", err)
	}

	top, err := s.referrals.Top(ctx, bot.ID, topReferrersLimit)
	if err != nil {
		return nil, "", fmt.Errorf("load referral leaderboard: %w", err)
	}

	contestList, err := s.contests.ListByBot(ctx, bot.ID)
	if err != nil {
		return nil, "", fmt.Errorf("list contests: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close workbook", slog.Any("error", err))
		}
	}()

	if err := f.SetSheetName("Sheet1", audienceSheet); err != nil {
		return nil, "", err
	}
	if err := writeAudienceSheet(f, users); err != nil {
		return nil, "", err
	}

	if _, err := f.NewSheet(referralsSheet); err != nil {
		return nil, "", err
	}
	if err := writeReferralSheet(f, top); err != nil {
		return nil, "", err
	}

	for _, contest := range contestList {
		entrants, err := s.contests.Participants(ctx, contest.ID)
		if err != nil {
			return nil, "", fmt.Errorf("list participants for contest %d: %w", contest.ID, err)
		}

		sheet := contestSheetName(contest)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, "", err
		}
		if err := writeContestSheet(f, sheet, entrants); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("serialize workbook: %w", err)
	}

	name := fmt.Sprintf("%s_%s.xlsx", bot.Username, time.Now().Format("2006-01-02"))
	return buf, name, nil
}

func writeAudienceSheet(f *excelize.File, users []domain.User) error {
	headers := []string{"Telegram ID", "Ism", "Familiya", "Username", "Telefon", "Qo'shilgan sana"}
	if err := writeRow(f, audienceSheet, 1, toCells(headers)); err != nil {
		return err
	}

	for i, u := range users {
		row := []interface{}{
			u.TelegramID,
			u.FirstName,
			u.LastName,
			u.Username,
			u.PhoneNumber,
			u.CreatedAt.Format("02.01.2006 15:04"),
		}
		if err := writeRow(f, audienceSheet, i+2, row); err != nil {
			return err
		}
	}

	return nil
}

func writeReferralSheet(f *excelize.File, top []domain.ReferralCount) error {
	headers := []string{"O'rin", "Telegram ID", "Ism", "Username", "Takliflar"}
	if err := writeRow(f, referralsSheet, 1, toCells(headers)); err != nil {
		return err
	}

	for i, rc := range top {
		row := []interface{}{
			i + 1,
			rc.ReferrerID,
			rc.FirstName,
			rc.Username,
			rc.Count,
		}
		if err := writeRow(f, referralsSheet, i+2, row); err != nil {
			return err
		}
	}

	return nil
}

func writeContestSheet(f *excelize.File, sheet string, entrants []domain.Entrant) error {
	headers := []string{"Telegram ID", "Ism", "Username", "Telefon", "Qo'shilgan sana", "Ishlar"}
	if err := writeRow(f, sheet, 1, toCells(headers)); err != nil {
		return err
	}

	for i, e := range entrants {
		row := []interface{}{
			e.TelegramID,
			e.FirstName,
			e.Username,
			e.PhoneNumber,
			e.JoinedAt.Format("02.01.2006 15:04"),
			e.Submissions,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	return nil
}

// contestSheetName derives a unique, length-capped sheet name from the
// contest title and id. Characters xlsx forbids in sheet names are dropped.
func contestSheetName(c domain.Contest) string {
	suffix := fmt.Sprintf(" #%d", c.ID)

	title := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return -1
		}
		return r
	}, c.Title)

	runes := []rune(title)
	if max := sheetNameLimit - len(suffix); len(runes) > max {
		runes = runes[:max]
	}
	return string(runes) + suffix
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
