package conversation

import (
	"context"
	"fmt"

	"github.com/gratefultolord/insurance_bot/internal/models"
	"github.com/gratefultolord/insurance_bot/internal/policy"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

// deliverPolicy generates, renders and sends the policy document. On failure the
// session stays in policy generation so the next message retries.
func (c *Controller) deliverPolicy(ctx context.Context, userID, chatID int64, sess *models.Session) bool {
	if sess.Record.Empty() {
		logx.Warn().Int64("user_id", userID).Msg("no data to generate the policy")
		c.sendText(chatID, textNoPolicyData)
		return false
	}

	c.sendText(chatID, textGenerating)

	number := c.newPolicyNumber()
	if err := c.issuePolicy(ctx, chatID, number, sess.Record); err != nil {
		if ctx.Err() != nil {
			logx.Info().Int64("user_id", userID).Msg("policy generation abandoned")
			return false
		}
		logx.Error().Err(err).Int64("user_id", userID).Str("policy_number", number).Msg("failed to generate policy")
		c.sendText(chatID, textPolicyError)
		return false
	}

	c.sendText(chatID, c.compose(ctx, promptPolicyReady))
	c.metrics.IncrementPolicyIssued()
	c.recordPolicy(ctx, userID, number, sess.Record)

	sess.State = models.StatePolicySent
	logx.Info().Int64("user_id", userID).Str("policy_number", number).Msg("policy sent")

	return true
}

func (c *Controller) issuePolicy(ctx context.Context, chatID int64, number string, rec models.UserRecord) error {
	text, err := c.policyWriter.Generate(ctx, policy.SystemPrompt, policy.BuildPrompt(rec, number, c.priceUSD))
	if err != nil {
		return fmt.Errorf("generate policy text: %w", err)
	}

	path := c.files.NewPath("policy", ".pdf")
	defer func() {
		if err := c.files.DeleteFile(path); err != nil {
			logx.Error().Err(err).Str("path", path).Msg("failed to delete policy file")
		}
	}()

	if err := c.renderer.Render(text, path); err != nil {
		return fmt.Errorf("render policy: %w", err)
	}

	if err := c.messenger.SendDocument(chatID, path); err != nil {
		return fmt.Errorf("send policy: %w", err)
	}

	return nil
}

func (c *Controller) recordPolicy(ctx context.Context, userID int64, number string, rec models.UserRecord) {
	if c.ledger == nil {
		return
	}

	issued := models.IssuedPolicy{
		Number:   number,
		UserID:   userID,
		PriceUSD: c.priceUSD,
		IssuedAt: c.now(),
	}
	if rec.Passport != nil {
		issued.Passport = *rec.Passport
	}
	if rec.Vehicle != nil {
		issued.Vehicle = *rec.Vehicle
	}

	if err := c.ledger.Record(ctx, issued); err != nil {
		logx.Error().Err(err).Int64("user_id", userID).Str("policy_number", number).Msg("failed to record issued policy")
	}
}
