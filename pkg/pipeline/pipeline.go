// Package pipeline drives a statement through search, refinement, matching
// and summarization one song at a time, committing a checkpoint after each.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/match"
	"github.com/cmaudit/claimscope/pkg/normalize"
	"github.com/cmaudit/claimscope/pkg/platforms/registry"
	"github.com/cmaudit/claimscope/pkg/refine"
	"github.com/cmaudit/claimscope/pkg/statement"
	"github.com/cmaudit/claimscope/pkg/storage"
	"github.com/cmaudit/claimscope/pkg/summary"
)

// ErrOverlap is returned when a row ends up both matched and unmatched.
var ErrOverlap = errors.New("rows are both matched and unmatched")

// SongError is a failure while processing one statement song. The
// checkpoint is left on the failed song.
type SongError struct {
	Song  string
	Index int
	Stage string
	// Sizes holds the sizes of the intermediate sets built before the failure.
	Sizes map[string]int
	Err   error
}

func (e *SongError) Error() string {
	keys := make([]string, 0, len(e.Sizes))
	for k := range e.Sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, e.Sizes[k]))
	}
	return fmt.Sprintf("song %d %q failed at %s [%s]: %v", e.Index, e.Song, e.Stage, strings.Join(parts, " "), e.Err)
}

func (e *SongError) Unwrap() error { return e.Err }

// Runner holds everything a run needs.
type Runner struct {
	Sources    []registry.Binding
	Refiners   *refine.Registry
	Matcher    match.Matcher
	Summarizer summary.Summarizer
	DB         *storage.DB
	Log        catalog.Logger // optional; nil = no logging

	// OnSongDone is called after a song has been committed. Nil = no callback.
	OnSongDone func(rep catalog.SongReport)
}

// Options controls Run.
type Options struct {
	// RunKey identifies the run in the checkpoint store.
	RunKey string
	// Restart resumes from the stored checkpoint instead of starting over.
	Restart bool
}

// RunKey identifies the run over a statement file, optionally narrowed to
// one artist.
func RunKey(statementPath, artist string) string {
	key := statementPath
	if abs, err := filepath.Abs(statementPath); err == nil {
		key = abs
	}
	if a := catalog.Clean(artist); a != "" {
		key += "#artist=" + a
	}
	return key
}

// RunResult holds the outcome of a run.
type RunResult struct {
	RunID string
	// Start is the index of the first song processed by this invocation.
	Start   int
	Total   int
	Reports []catalog.SongReport
}

// Run processes the songs of stmt in order, starting from the checkpoint
// when opts.Restart is set. It stops at the first failing song.
func (r *Runner) Run(ctx context.Context, stmt *statement.Statement, opts Options) (*RunResult, error) {
	log := catalog.OrNop(r.Log)
	if r.DB == nil {
		return nil, errors.New("pipeline: a results database is required")
	}
	if opts.RunKey == "" {
		return nil, errors.New("pipeline: empty run key")
	}

	songs := stmt.Songs()
	cp := storage.Checkpoint{RunKey: opts.RunKey, RunID: uuid.NewString()}

	if opts.Restart {
		loaded, err := r.DB.LoadCheckpoint(ctx, opts.RunKey)
		switch {
		case errors.Is(err, storage.ErrNoCheckpoint):
			log.Infof("No checkpoint for %s, starting from the first song", opts.RunKey)
		case err != nil:
			return nil, err
		default:
			cp = loaded
			log.Infof("Resuming run %s at song %d/%d", cp.RunID, cp.NextSongIndex+1, len(songs))
		}
	} else if err := r.DB.ResetRun(ctx, opts.RunKey); err != nil {
		return nil, err
	}

	res := &RunResult{RunID: cp.RunID, Start: cp.NextSongIndex, Total: len(songs)}
	if cp.NextSongIndex > len(songs) {
		log.Warnf("Checkpoint points at song %d but the statement only has %d songs", cp.NextSongIndex+1, len(songs))
		return res, nil
	}

	for i := cp.NextSongIndex; i < len(songs); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		song := songs[i]
		started := time.Now()
		log.Infof("Song %d/%d: %s (%d statement rows)", i+1, len(songs), song.Name, len(song.Records))

		rep, err := r.ProcessSong(ctx, i, song)
		if err == nil {
			cp.LastPlatform = lastPlatform(r.Sources)
			if cerr := r.DB.CommitSong(ctx, cp, rep); cerr != nil {
				err = &SongError{Song: song.Name, Index: i, Stage: "persist", Sizes: reportSizes(rep), Err: cerr}
			}
		}
		if err != nil {
			log.Errorf("%v", err)
			log.Errorf("Please solve the problem and then restart from song %d (%s)", i+1, song.Name)
			return res, err
		}

		res.Reports = append(res.Reports, rep)
		log.Infof("Song %s done in %s: %d matched, %d unmatched, %d dropped",
			song.Name, time.Since(started).Round(time.Millisecond), len(rep.Matched), len(rep.Unmatched), len(rep.Dropped))
		if r.OnSongDone != nil {
			r.OnSongDone(rep)
		}
	}
	return res, nil
}

// ProcessSong runs the full pass for one song without persisting anything.
func (r *Runner) ProcessSong(ctx context.Context, index int, song statement.Song) (catalog.SongReport, error) {
	log := catalog.OrNop(r.Log)
	sizes := map[string]int{"clients": len(song.Records)}
	fail := func(stage string, err error) (catalog.SongReport, error) {
		return catalog.SongReport{}, &SongError{Song: song.Name, Index: index, Stage: stage, Sizes: sizes, Err: err}
	}

	in := refine.Input{Song: song.Name, Artists: song.Artists(), Albums: song.Albums()}
	var pool []catalog.Candidate
	for _, b := range r.Sources {
		name := b.Platform.Name
		started := time.Now()

		raws, err := b.Source.SearchSongs(ctx, song.Name)
		if err != nil {
			return fail("search "+name, err)
		}
		rows, errs := b.Mapper.MapAll(raws)
		for _, e := range errs {
			log.Warnf("Skipping %s row for %q: %v", name, song.Name, e)
		}

		refiner, err := r.Refiners.Lookup(name)
		if err != nil {
			return fail("refine "+name, err)
		}
		in.Rows = normalize.Rows(rows)
		refined := refiner.Refine(in)
		pool = append(pool, refined.Candidates...)

		sizes[name+".rows"] = len(rows)
		sizes[name+".candidates"] = len(refined.Candidates)
		log.Infof("%s: %d rows, %d candidates (%d tier 1, %d tier 2) after %d refine iterations (%s)",
			name, len(rows), len(refined.Candidates), len(refined.Tier(1)), len(refined.Tier(2)),
			refined.Iterations, time.Since(started).Round(time.Millisecond))
	}

	out := r.Matcher.Match(song.Records, pool)
	sizes["matched"] = len(out.Matched)
	sizes["unmatched"] = len(out.Unmatched)
	sizes["dropped"] = len(out.Dropped)
	if ids := match.Overlap(out); len(ids) > 0 {
		return fail("match", fmt.Errorf("%w: %v", ErrOverlap, ids))
	}

	rep := catalog.SongReport{
		Index:     index,
		Song:      song.Name,
		Summaries: r.Summarizer.Summarize(out.Matched, song.Records),
		Matched:   out.Matched,
		Unmatched: out.Unmatched,
	}
	for _, d := range out.Dropped {
		rep.Dropped = append(rep.Dropped, d.ID())
	}
	return rep, nil
}

func lastPlatform(sources []registry.Binding) string {
	if len(sources) == 0 {
		return ""
	}
	return sources[len(sources)-1].Platform.Name
}

func reportSizes(rep catalog.SongReport) map[string]int {
	return map[string]int{
		"versions":  len(rep.Summaries),
		"matched":   len(rep.Matched),
		"unmatched": len(rep.Unmatched),
		"dropped":   len(rep.Dropped),
	}
}
