package machine

import (
	"fmt"
	"strings"
	"time"

	"orpheus/player"

	"github.com/disgoorg/disgo/discord"
)

// embedColor is the accent color used on every embed the bot sends.
const embedColor = 0xA84300

// nowPlayingEmbed builds the announcement posted when a track starts.
func nowPlayingEmbed(t *player.Track, footerName, footerIcon string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle("Now playing").
		SetDescription(fmt.Sprintf("[%s](%s)", t.Title, t.URL)).
		SetColor(embedColor).
		SetTimestamp(time.Now())

	if t.Duration > 0 {
		builder.AddField("Duration", t.FormatDuration(), true)
	}
	if t.RequestedBy != "" {
		builder.AddField("Requested by", t.RequestedBy, true)
	}
	if t.Thumbnail != "" {
		builder.SetThumbnail(t.Thumbnail)
	}
	builder.SetFooter(footerName, footerIcon)

	return builder.Build()
}

// queuedEmbed builds the response for a track that went into the queue
// behind whatever is playing.
func queuedEmbed(t *player.Track, position int, footerName, footerIcon string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle("Queued").
		SetDescription(fmt.Sprintf("[%s](%s)", t.Title, t.URL)).
		SetColor(embedColor).
		SetTimestamp(time.Now()).
		AddField("Position", fmt.Sprintf("#%d", position), true)

	if t.Duration > 0 {
		builder.AddField("Duration", t.FormatDuration(), true)
	}
	if t.RequestedBy != "" {
		builder.AddField("Requested by", t.RequestedBy, true)
	}
	if t.Thumbnail != "" {
		builder.SetThumbnail(t.Thumbnail)
	}
	builder.SetFooter(footerName, footerIcon)

	return builder.Build()
}

// queueEmbed renders one page of the queue plus the current track.
func queueEmbed(current *player.Track, items []*player.Track, page, perPage int, footerName, footerIcon string) discord.Embed {
	start, end, page, pages := pageBounds(len(items), page, perPage)

	var sb strings.Builder
	if current != nil {
		fmt.Fprintf(&sb, "**Now playing:** [%s](%s) `%s`\n\n", current.Title, current.URL, current.FormatDuration())
	}
	if len(items) == 0 {
		sb.WriteString("Nothing queued.")
	}
	for i := start; i < end; i++ {
		t := items[i]
		fmt.Fprintf(&sb, "`%d.` [%s](%s) `%s`\n", i+1, t.Title, t.URL, t.FormatDuration())
	}

	footer := footerName
	if pages > 1 {
		footer = fmt.Sprintf("Page %d of %d", page, pages)
	}

	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("Queue (%d tracks)", len(items))).
		SetDescription(sb.String()).
		SetColor(embedColor).
		SetTimestamp(time.Now()).
		SetFooter(footer, footerIcon).
		Build()
}

// pageBounds clamps page into the valid range for total items and returns
// the slice bounds of that page.
func pageBounds(total, page, perPage int) (start, end, clamped, pages int) {
	if perPage < 1 {
		perPage = 1
	}
	pages = (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start = (page - 1) * perPage
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end, page, pages
}
