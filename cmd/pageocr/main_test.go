package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pageocr "github.com/porticus-lab/go-page-ocr"
	"github.com/porticus-lab/go-page-ocr/internal/artifact"
	"github.com/porticus-lab/go-page-ocr/internal/config"
	"github.com/porticus-lab/go-page-ocr/internal/jobs"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"capture", "ocr", "run", "serve"} {
		assert.Contains(t, names, want)
	}
}

func TestOCRCommand_SeveralImagesNeedChunked(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	root := newRootCmd()
	root.SetArgs([]string{"ocr", "--env-file", "", "a.png", "b.png"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--chunked")
}

func TestWriteText(t *testing.T) {
	res := &pageocr.TextResult{Text: "体重 60kg", Model: "m", Warnings: []string{"reflow skipped: empty output"}}

	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	require.NoError(t, writeText(cmd, "", false, res))
	assert.Equal(t, "体重 60kg\n", out.String())
	assert.Contains(t, errOut.String(), "warning: reflow skipped")

	out.Reset()
	require.NoError(t, writeText(cmd, "", true, res))
	assert.Contains(t, out.String(), `"text": "体重 60kg"`)
	assert.Contains(t, out.String(), `"warnings"`)
}

func TestThumbnailName(t *testing.T) {
	assert.Equal(t, "page.thumb.png", thumbnailName("page.png"))
	assert.Equal(t, filepath.Join("out", "x.thumb.png"), thumbnailName(filepath.Join("out", "x.png")))
}

func TestNewStores(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	store, err := newJobStore(ctx, cfg.Jobs)
	require.NoError(t, err)
	assert.IsType(t, &jobs.MemoryStore{}, store)
	store.Close()

	_, err = newJobStore(ctx, config.JobsConfig{Store: "etcd"})
	assert.Error(t, err)

	arts, closeFn, err := newArtifactStore(ctx, cfg.Artifacts)
	require.NoError(t, err)
	assert.IsType(t, artifact.Nop{}, arts)
	closeFn()

	dir := t.TempDir()
	arts, closeFn, err = newArtifactStore(ctx, config.ArtifactConfig{Store: "fs", Dir: dir})
	require.NoError(t, err)
	defer closeFn()
	uri, err := arts.Put(ctx, artifact.JobKey("j", artifact.TextName), "text/plain", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"), uri)
}

func TestProgressObserver(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressObserver(&buf, "ocr")
	p.OnPhase(pageocr.PhaseCapturing)
	p.OnProgress(1, 2)
	p.OnProgress(2, 2)
	p.OnPhase(pageocr.PhaseExtracting)
	p.OnProgress(1, 3)
	p.OnPhase(pageocr.PhaseCleaning)
	p.OnPhase(pageocr.PhaseDone)
	assert.Nil(t, p.bar)
	assert.Contains(t, buf.String(), "ocr: ")
}

func TestProgressObserver_SameTotalAcrossPhases(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressObserver(&buf, "ocr")
	p.OnPhase(pageocr.PhaseCapturing)
	p.OnProgress(1, 2)
	p.OnProgress(2, 2)
	captureBar := p.bar
	require.NotNil(t, captureBar)

	p.OnPhase(pageocr.PhaseExtracting)
	assert.Nil(t, p.bar)
	p.OnProgress(1, 2)
	require.NotNil(t, p.bar)
	assert.NotSame(t, captureBar, p.bar)
	assert.False(t, p.bar.IsFinished())
	assert.Contains(t, buf.String(), "extracting chunks")
}
