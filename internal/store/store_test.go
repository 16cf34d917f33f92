package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"bdresolve/internal/store"
	"bdresolve/internal/testsupport"
)

func TestStartAndGetSession(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := st.StartSession(ctx, store.SessionParams{Directory: "/comics", ConfigJSON: `{"workers":4}`, Workers: 4, BatchMode: true, TotalFiles: 10})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.Status != store.SessionRunning {
		t.Fatalf("new session status = %q", session.Status)
	}

	got, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Directory != "/comics" || got.TotalFiles != 10 || got.ConfigJSON != `{"workers":4}` {
		t.Fatalf("session round trip lost fields: %+v", got)
	}
	if got.Workers != 4 || !got.BatchMode || got.StrictMode {
		t.Fatalf("mode columns lost: %+v", got)
	}
}

func TestGetSessionMissing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := st.GetSession(context.Background(), "nope"); err == nil {
		t.Fatal("missing session must error")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := st.StartSession(ctx, store.SessionParams{Directory: "/a", ConfigJSON: "{}", TotalFiles: 1})
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	second, err := st.StartSession(ctx, store.SessionParams{Directory: "/b", ConfigJSON: "{}", TotalFiles: 1})
	if err != nil {
		t.Fatalf("start second: %v", err)
	}

	sessions, err := st.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatalf("sessions not newest first: %s then %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestRecordOutcomeIdempotentPerPath(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := st.StartSession(ctx, store.SessionParams{Directory: "/comics", ConfigJSON: "{}", TotalFiles: 1})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	failed := store.FileRecord{
		SessionID: session.ID,
		FilePath:  "/comics/a.cbz",
		Status:    store.FileFailed,
		Attempts:  3,
	}
	rec1, applied, err := st.RecordOutcome(ctx, failed)
	if err != nil || !applied {
		t.Fatalf("first record: applied=%v err=%v", applied, err)
	}

	// A later run may settle the same path; same row, updated in place.
	success := failed
	success.Status = store.FileSuccess
	success.Score = 0.91
	success.Title = "Asterix"
	rec2, applied, err := st.RecordOutcome(ctx, success)
	if err != nil || !applied {
		t.Fatalf("second record: applied=%v err=%v", applied, err)
	}
	if rec2.ID != rec1.ID {
		t.Fatalf("same path must reuse the row: %d then %d", rec1.ID, rec2.ID)
	}
	if rec2.Status != store.FileSuccess || rec2.Score != 0.91 {
		t.Fatalf("update not applied: %+v", rec2)
	}

	// Settled rows are immutable: a stray re-record is refused.
	overwrite := failed
	overwrite.Status = store.FileFailed
	rec3, applied, err := st.RecordOutcome(ctx, overwrite)
	if err != nil {
		t.Fatalf("third record: %v", err)
	}
	if applied {
		t.Fatal("settled outcome must not be overwritten")
	}
	if rec3.Status != store.FileSuccess {
		t.Fatalf("settled row mutated: %+v", rec3)
	}

	done, err := st.IsProcessed(ctx, "/comics/a.cbz")
	if err != nil || !done {
		t.Fatalf("IsProcessed = %v, %v", done, err)
	}
}

func TestRecordOutcomeCollidesPathSpellings(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	dir := t.TempDir()

	first, _, err := st.RecordOutcome(ctx, store.FileRecord{
		FilePath: dir + "/a.cbz",
		Status:   store.FileFailed,
	})
	if err != nil {
		t.Fatalf("first record: %v", err)
	}

	// A dotted spelling of the same file must hit the same row.
	second, _, err := st.RecordOutcome(ctx, store.FileRecord{
		FilePath: dir + "/./a.cbz",
		Status:   store.FileSuccess,
		Score:    0.88,
	})
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("path spellings must collide on one row: ids %d and %d", first.ID, second.ID)
	}
	if second.FilePath != first.FilePath {
		t.Fatalf("stored path not canonical: %q vs %q", second.FilePath, first.FilePath)
	}

	done, err := st.IsProcessed(ctx, dir+"/../"+filepath.Base(dir)+"/a.cbz")
	if err != nil || !done {
		t.Fatalf("IsProcessed must normalize its lookup: %v, %v", done, err)
	}
}

func TestCompleteSessionReconcilesCounters(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := st.StartSession(ctx, store.SessionParams{Directory: "/comics", ConfigJSON: "{}", TotalFiles: 3})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	outcomes := []store.FileRecord{
		{SessionID: session.ID, FilePath: "/comics/a.cbz", Status: store.FileSuccess, Score: 0.9},
		{SessionID: session.ID, FilePath: "/comics/b.cbz", Status: store.FileManual, Score: 0.5},
		{SessionID: session.ID, FilePath: "/comics/c.cbz", Status: store.FileFailed},
	}
	for _, rec := range outcomes {
		if _, _, err := st.RecordOutcome(ctx, rec); err != nil {
			t.Fatalf("record %s: %v", rec.FilePath, err)
		}
	}

	if err := st.CompleteSession(ctx, session.ID); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	got, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != store.SessionCompleted {
		t.Fatalf("status = %q", got.Status)
	}
	if got.ProcessedFiles != 3 || got.SuccessfulFiles != 1 || got.ManualFiles != 1 || got.FailedFiles != 1 {
		t.Fatalf("counters not reconciled: %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Fatal("completed session must have a completion time")
	}
}

func TestResumeForksPausedSession(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := st.StartSession(ctx, store.SessionParams{Directory: "/comics", ConfigJSON: `{"strict":true}`, StrictMode: true, TotalFiles: 5})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := st.PauseSession(ctx, session.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	fork, err := st.ResumeSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if fork.ID == session.ID {
		t.Fatal("resume must create a new session")
	}
	if fork.ParentSessionID != session.ID {
		t.Fatalf("fork parent = %q", fork.ParentSessionID)
	}
	if fork.Directory != "/comics" || fork.ConfigJSON != `{"strict":true}` || !fork.StrictMode {
		t.Fatalf("fork must inherit directory and config: %+v", fork)
	}

	original, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if original.Status != store.SessionResumed {
		t.Fatalf("original status = %q", original.Status)
	}
}

func TestResumeRejectsCompletedSession(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := st.StartSession(ctx, store.SessionParams{Directory: "/comics", ConfigJSON: "{}"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := st.CompleteSession(ctx, session.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := st.ResumeSession(ctx, session.ID); err == nil {
		t.Fatal("completed sessions must not resume")
	}
}

func TestUnfinishedFiles(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	session, err := st.StartSession(ctx, store.SessionParams{Directory: "/comics", ConfigJSON: "{}", TotalFiles: 3})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	records := []store.FileRecord{
		{SessionID: session.ID, FilePath: "/comics/ok.cbz", Status: store.FileSuccess},
		{SessionID: session.ID, FilePath: "/comics/bad.cbz", Status: store.FileFailed},
		{SessionID: session.ID, FilePath: "/comics/later.cbz", Status: store.FileSkipped},
	}
	for _, rec := range records {
		if _, _, err := st.RecordOutcome(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	unfinished, err := st.UnfinishedFiles(ctx, session.ID)
	if err != nil {
		t.Fatalf("unfinished: %v", err)
	}
	if len(unfinished) != 2 {
		t.Fatalf("expected 2 unfinished files, got %d", len(unfinished))
	}
}
