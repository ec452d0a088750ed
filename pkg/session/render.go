package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fileybot/filey/pkg/icons"
	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/utils"
)

// maxButtonLabel keeps row labels inside what chat clients render cleanly.
const maxButtonLabel = 64

// renderListing renders one page of the current directory as a keyboard:
// the parent-directory row first, then one row per entry in the page window,
// then the pagination row when more pages exist on either side. Preceding
// renders (confirmation text and the like) are delivered before the listing.
func (e *Engine) renderListing(ctx context.Context, sess *Session, page int, before []Render) ([]Render, error) {
	entries, err := sess.fs.Ls(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}

	prefs, err := sess.prefs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if page < 0 {
		page = 0
	}
	start := page * e.pageSize
	if start > len(entries) {
		start = len(entries)
	}
	end := start + e.pageSize
	if end > len(entries) {
		end = len(entries)
	}

	keyboard := [][]Button{{
		{
			Label: "⤴ Parent directory",
			Data:  Action{Tag: ActionChangeDir, Target: namespace.DirEntry(sess.fs.Parent())}.Encode(),
		},
	}}

	for _, entry := range entries[start:end] {
		tag := ActionOpen
		if entry.Kind == namespace.KindDirectory {
			tag = ActionChangeDir
		}

		row := []Button{{
			Label: utils.Truncate(icons.For(entry)+" "+entry.Name(), maxButtonLabel),
			Data:  Action{Tag: tag, Target: entry}.Encode(),
		}}
		if prefs.ShowListOptions {
			row = append(row,
				Button{Label: "✏", Data: Action{Tag: ActionRename, Target: entry}.Encode()},
				Button{Label: "❌", Data: Action{Tag: ActionRemove, Target: entry}.Encode()},
			)
		}
		keyboard = append(keyboard, row)
	}

	current := namespace.DirEntry(sess.fs.Current())
	prev := start > 0
	next := end < len(entries)
	if prev || next {
		var row []Button
		if prev {
			row = append(row, Button{
				Label: "⬅ Previous",
				Data:  Action{Tag: ActionPrevPage, Target: current, Extra: strconv.Itoa(page - 1)}.Encode(),
			})
		}
		if next {
			row = append(row, Button{
				Label: "➡ Next",
				Data:  Action{Tag: ActionNextPage, Target: current, Extra: strconv.Itoa(page + 1)}.Encode(),
			})
		}
		keyboard = append(keyboard, row)
	}

	listing := Render{
		Text:     "Path: " + codeSpan(sess.fs.Pwd()),
		Markdown: true,
		Keyboard: keyboard,
	}

	return append(before, listing), nil
}

// codeSpan wraps s in a MarkdownV2 inline code span. Backslashes and
// backticks are the only characters that can terminate one early, so entry
// names containing them must be escaped or the send fails.
func codeSpan(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")

	return "`" + s + "`"
}
