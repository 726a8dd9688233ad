package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/GroupWarden/internal/domain/moderation"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/domain/review"
)

// Admin-facing message templates. The transport renders *bold* markup.

func formatStartup(groupName string, total, admins int) string {
	return fmt.Sprintf(`Moderation agent is online.

Connected to group: %s
Watching %d members (including %d admins)

How it works:
- every message is analyzed
- problematic messages are flagged or deleted
- admins get a private alert on every finding
- react to a review alert to give feedback: ✅ ❌ ⚠️ 🔄

The agent is live and watching all messages.`, groupName, total, admins)
}

func formatDeleted(contact string, v moderation.Verdict, content string, truncateAt int) string {
	return fmt.Sprintf(`User: %s
Classification: %s
Confidence: %.1f%%
Reason: %s

Deleted content:
"%s"

Time: %s`,
		contact, v.Classification, v.Confidence*100, v.Reasoning,
		moderation.Truncate(content, truncateAt),
		time.Now().Format(time.RFC3339))
}

func formatReview(rec review.Record, contact string, truncateAt int) string {
	return fmt.Sprintf(`User: %s
Classification: %s
Confidence: %.1f%%
Reason: %s

Message content:
"%s"

React to this alert:
✅ - approve message (agent was wrong)
❌ - delete message (agent was right)
⚠️ - complex case
🔄 - re-analyze

Review ID: %s
Time: %s`,
		contact, rec.Verdict.Classification, rec.Verdict.Confidence*100, rec.Verdict.Reasoning,
		moderation.Truncate(rec.Message.Content, truncateAt),
		rec.ReviewID,
		rec.CreatedAt.Format(time.RFC3339))
}

func formatFeedbackAck(rec review.Record) string {
	return fmt.Sprintf(`Review: %s
Feedback: %s %s

The agent will learn from this feedback.`,
		rec.ReviewID, rec.Feedback.Emoji(), rec.Feedback.Describe())
}

func formatJoined(memberIDs []string, total int) string {
	return fmt.Sprintf(`New members joined: %s
Total tracked members: %d

Reminder for new members:
- read the group rules
- be careful sharing sensitive information
- a moderation bot watches all messages`,
		strings.Join(memberIDs, ", "), total)
}

func formatExpired(batch []review.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d review(s) expired without resolution:\n", len(batch))
	for _, rec := range batch {
		fmt.Fprintf(&b, "- %s (message %s, %s)\n", rec.ReviewID, rec.MessageID, rec.Verdict.Classification)
	}
	b.WriteString("\nThe original messages were left untouched.")
	return b.String()
}

func formatDailyReport(stats report.Stats, total, admins int, now time.Time) string {
	return fmt.Sprintf(`Today's statistics:
- messages analyzed: %d
- approved: %d
- flagged: %d
- deleted: %d

Member tracking:
- active members: %d
- admins: %d

Agent performance:
- overall accuracy: %.1f%%
- change since last week: %+.1f%%

Date: %s`,
		stats.DailyMessages, stats.Approved, stats.Flagged, stats.Deleted,
		total, admins,
		stats.Accuracy, stats.Improvement,
		now.Format("2006-01-02 15:04"))
}

func formatError(messageID string, err error) string {
	return fmt.Sprintf(`A message could not be routed to review.

Message ID: %s
Error: %v

Please check the message manually.`, messageID, err)
}

// mediaReminder is replied in-group after an approved message that looks
// like it shares live media.
const mediaReminder = "Automatic reminder: please mind the media content being shared and where it was filmed."
