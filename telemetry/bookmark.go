package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkTeamWiped   BookmarkType = "team_wiped"
	BookmarkHeavyLosses BookmarkType = "heavy_losses"
	BookmarkStalemate   BookmarkType = "stalemate"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// stalemateWindows is how many quiet windows in a row make a stalemate.
const stalemateWindows = 5

// BookmarkDetector detects interesting moments in a battle.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	lastTeamUnits map[string]int
	quietWindows  int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < stalemateWindows {
		historySize = stalemateWindows
	}
	return &BookmarkDetector{
		history:       make([]WindowStats, historySize),
		historySize:   historySize,
		lastTeamUnits: make(map[string]int),
	}
}

// Check analyzes the latest window and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats, teams []TeamStats) []Bookmark {
	var bookmarks []Bookmark

	for _, t := range teams {
		if prev, seen := bd.lastTeamUnits[t.Team]; seen && prev > 0 && t.Units == 0 {
			bookmarks = append(bookmarks, Bookmark{
				Type:        BookmarkTeamWiped,
				Tick:        stats.WindowEndTick,
				Description: fmt.Sprintf("Team %s lost its last %d units", t.Team, prev),
			})
		}
		bd.lastTeamUnits[t.Team] = t.Units
	}

	if b := bd.checkHeavyLosses(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkStalemate(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) previous() (WindowStats, bool) {
	if !bd.historyFull && bd.historyIdx == 0 {
		return WindowStats{}, false
	}
	i := (bd.historyIdx - 1 + bd.historySize) % bd.historySize
	return bd.history[i], true
}

// checkHeavyLosses fires when a window kills at least 30% of the units alive
// at the start of it.
func (bd *BookmarkDetector) checkHeavyLosses(stats WindowStats) *Bookmark {
	prev, ok := bd.previous()
	if !ok || prev.Units == 0 || stats.Deaths < 5 {
		return nil
	}
	frac := float64(stats.Deaths) / float64(prev.Units)
	if frac < 0.30 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkHeavyLosses,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d of %d units died (%.0f%%)", stats.Deaths, prev.Units, frac*100),
	}
}

// checkStalemate fires once when armies coexist without shooting for
// stalemateWindows windows in a row.
func (bd *BookmarkDetector) checkStalemate(stats WindowStats) *Bookmark {
	if stats.Teams < 2 || stats.Units == 0 || stats.Shots > 0 || stats.Deaths > 0 {
		bd.quietWindows = 0
		return nil
	}
	bd.quietWindows++
	if bd.quietWindows != stalemateWindows {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStalemate,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No shots fired for %d windows with %d units alive", stalemateWindows, stats.Units),
	}
}
