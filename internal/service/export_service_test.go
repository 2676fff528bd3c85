package service

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type exportFixture struct {
	export ExportService
	tree   TreeService
	store  *memObjectStore
}

func newExportFixture() *exportFixture {
	folders := newMemFolderRepo()
	files := newMemFileRepo()
	owners := newFakeOwnerRegistry()
	store := newMemObjectStore()
	tree := NewTreeService(folders, files, owners)
	return &exportFixture{
		export: NewExportService(tree, folders, store, zap.NewNop()),
		tree:   tree,
		store:  store,
	}
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	members := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			members[f.Name] = ""
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		members[f.Name] = string(body)
	}
	return members
}

func TestExportSubtreeRoundTrip(t *testing.T) {
	f := newExportFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := f.tree.FindOrCreateFolder(ctx, ownerID, "dossier")
	require.NoError(t, err)
	docs, err := f.tree.FindOrCreateFolder(ctx, root.ID, "docs")
	require.NoError(t, err)
	_, err = f.tree.FindOrCreateFolder(ctx, root.ID, "empty")
	require.NoError(t, err)

	f.store.objects["obj/report"] = []byte("report body")
	_, err = f.tree.CreateFile(ctx, docs.ID, "report", "pdf", domain.StorageRef{Key: "obj/report"}, true)
	require.NoError(t, err)

	export, err := f.export.ExportSubtree(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, "dossier.zip", export.FileName)

	members := readArchive(t, export.Data)
	assert.Equal(t, "report body", members["docs/report.pdf"])
	// Empty folders survive as directory entries.
	assert.Contains(t, members, "empty/")
	assert.Len(t, members, 2)
}

func TestExportSubtreeByOwnerID(t *testing.T) {
	f := newExportFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := f.tree.FindOrCreateFolder(ctx, ownerID, "dossier")
	require.NoError(t, err)
	f.store.objects["obj/x"] = []byte("x")
	_, err = f.tree.CreateFile(ctx, root.ID, "x", "pdf", domain.StorageRef{Key: "obj/x"}, true)
	require.NoError(t, err)

	export, err := f.export.ExportSubtree(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "archive.zip", export.FileName)

	members := readArchive(t, export.Data)
	assert.Equal(t, "x", members["dossier/x.pdf"])
}

func TestExportSubtreeUnknownRoot(t *testing.T) {
	f := newExportFixture()

	_, err := f.export.ExportSubtree(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestExportSubtreeFailsOnMissingMember(t *testing.T) {
	f := newExportFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := f.tree.FindOrCreateFolder(ctx, ownerID, "dossier")
	require.NoError(t, err)
	// Node exists but its payload is gone from the store.
	_, err = f.tree.CreateFile(ctx, root.ID, "ghost", "pdf", domain.StorageRef{Key: "obj/missing"}, true)
	require.NoError(t, err)

	_, err = f.export.ExportSubtree(ctx, root.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ghost.pdf")
}
