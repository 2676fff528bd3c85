package service

import (
	"context"
	"testing"

	"github.com/pranav-ddreg/vitalic-docstore/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTreeFixture() (TreeService, *memFolderRepo, *memFileRepo, *fakeOwnerRegistry) {
	folders := newMemFolderRepo()
	files := newMemFileRepo()
	owners := newFakeOwnerRegistry()
	return NewTreeService(folders, files, owners), folders, files, owners
}

func TestCreateFolderRequiresValidParent(t *testing.T) {
	tree, _, _, owners := newTreeFixture()
	ctx := context.Background()

	_, err := tree.CreateFolder(ctx, primitive.NewObjectID(), "orphan")
	assert.ErrorIs(t, err, ErrInvalidParent)

	// A business-record id is an acceptable root parent.
	ownerID := primitive.NewObjectID()
	owners.kinds[ownerID] = domain.OwnerKindRenewal

	folder, err := tree.CreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", folder.Title)
	assert.Equal(t, ownerID, folder.Parent)
}

func TestCreateFolderDuplicateSibling(t *testing.T) {
	tree, _, _, owners := newTreeFixture()
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	owners.kinds[ownerID] = domain.OwnerKindFolder

	_, err := tree.CreateFolder(ctx, ownerID, "reports")
	require.NoError(t, err)

	_, err = tree.CreateFolder(ctx, ownerID, "reports")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestFindOrCreateFolderIdempotent(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	parent := primitive.NewObjectID()

	first, err := tree.FindOrCreateFolder(ctx, parent, "2024")
	require.NoError(t, err)

	second, err := tree.FindOrCreateFolder(ctx, parent, "2024")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different title under the same parent is a new folder.
	other, err := tree.FindOrCreateFolder(ctx, parent, "2025")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestListChildrenFlagsFoldersWithContent(t *testing.T) {
	tree, _, _, owners := newTreeFixture()
	ctx := context.Background()

	ownerID := primitive.NewObjectID()
	owners.kinds[ownerID] = domain.OwnerKindFolder

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)

	full, err := tree.FindOrCreateFolder(ctx, root.ID, "full")
	require.NoError(t, err)
	_, err = tree.FindOrCreateFolder(ctx, full.ID, "nested")
	require.NoError(t, err)

	_, err = tree.FindOrCreateFolder(ctx, root.ID, "empty")
	require.NoError(t, err)

	_, err = tree.CreateFile(ctx, root.ID, "summary", "pdf", domain.StorageRef{Key: "k"}, true)
	require.NoError(t, err)

	children, err := tree.ListChildren(ctx, root.ID, ListOptions{})
	require.NoError(t, err)
	require.Len(t, children, 3)

	// Folders first, title ascending, then files.
	assert.Equal(t, NodeKindFolder, children[0].Kind)
	assert.Equal(t, "empty", children[0].Folder.Title)
	assert.False(t, children[0].HasChildren)

	assert.Equal(t, "full", children[1].Folder.Title)
	assert.True(t, children[1].HasChildren)

	assert.Equal(t, NodeKindFile, children[2].Kind)
	assert.Equal(t, "summary.pdf", children[2].File.Name())
}

func TestListChildrenSearchAndOrder(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	parent := primitive.NewObjectID()

	for _, title := range []string{"alpha", "beta", "gamma"} {
		_, err := tree.FindOrCreateFolder(ctx, parent, title)
		require.NoError(t, err)
	}

	children, err := tree.ListChildren(ctx, parent, ListOptions{Descending: true})
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "gamma", children[0].Folder.Title)
	assert.Equal(t, "alpha", children[2].Folder.Title)

	children, err = tree.ListChildren(ctx, parent, ListOptions{Search: "AM"})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "gamma", children[0].Folder.Title)
}

func TestBreadcrumbExcludesRoot(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	level1, err := tree.FindOrCreateFolder(ctx, root.ID, "level1")
	require.NoError(t, err)
	level2, err := tree.FindOrCreateFolder(ctx, level1.ID, "level2")
	require.NoError(t, err)

	crumbs, err := tree.Breadcrumb(ctx, level2.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 2)
	assert.Equal(t, "level1", crumbs[0].Name)
	assert.Equal(t, "level2", crumbs[1].Name)
}

func TestBreadcrumbEndsWithFile(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	sub, err := tree.FindOrCreateFolder(ctx, root.ID, "sub")
	require.NoError(t, err)
	file, err := tree.CreateFile(ctx, sub.ID, "notes", "docx", domain.StorageRef{Key: "k"}, true)
	require.NoError(t, err)

	crumbs, err := tree.Breadcrumb(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, crumbs, 2)
	assert.Equal(t, "sub", crumbs[0].Name)
	assert.Equal(t, "notes.docx", crumbs[1].Name)
}

func TestBreadcrumbUnknownNode(t *testing.T) {
	tree, _, _, _ := newTreeFixture()

	_, err := tree.Breadcrumb(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRecursiveListMarksEmptyFolders(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	docs, err := tree.FindOrCreateFolder(ctx, root.ID, "docs")
	require.NoError(t, err)
	_, err = tree.CreateFile(ctx, docs.ID, "report", "pdf", domain.StorageRef{Key: "obj/report"}, true)
	require.NoError(t, err)
	_, err = tree.FindOrCreateFolder(ctx, root.ID, "empty")
	require.NoError(t, err)

	entries, err := tree.RecursiveList(ctx, root.ID)
	require.NoError(t, err)

	paths := make(map[string]NodeKind, len(entries))
	for _, e := range entries {
		paths[e.Path] = e.Kind
	}
	assert.Equal(t, NodeKindFile, paths["docs/report.pdf"])
	assert.Equal(t, NodeKindFolder, paths["empty/"])
	assert.Len(t, entries, 2)
}

func TestDeleteRecursiveRemovesSubtree(t *testing.T) {
	tree, folders, files, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	sub, err := tree.FindOrCreateFolder(ctx, root.ID, "sub")
	require.NoError(t, err)
	fileA, err := tree.CreateFile(ctx, sub.ID, "a", "pdf", domain.StorageRef{Key: "a"}, true)
	require.NoError(t, err)
	fileB, err := tree.CreateFile(ctx, root.ID, "b", "pdf", domain.StorageRef{Key: "b"}, true)
	require.NoError(t, err)

	require.NoError(t, tree.DeleteRecursive(ctx, root.ID))
	assert.Empty(t, folders.folders)
	assert.Empty(t, files.files)

	// Files go before their containing folder, subfolders before their parent.
	assert.Equal(t, []primitive.ObjectID{fileB.ID, fileA.ID}, files.deleted)
	assert.Equal(t, []primitive.ObjectID{sub.ID, root.ID}, folders.deleted)
}

func TestDeleteRecursiveSingleFile(t *testing.T) {
	tree, folders, _, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	file, err := tree.CreateFile(ctx, root.ID, "only", "pdf", domain.StorageRef{Key: "k"}, true)
	require.NoError(t, err)

	require.NoError(t, tree.DeleteRecursive(ctx, file.ID))

	// The containing folder survives.
	_, err = tree.GetFolder(ctx, root.ID)
	assert.NoError(t, err)
	assert.Len(t, folders.folders, 1)
}

func TestDeleteRecursiveUnknownNode(t *testing.T) {
	tree, _, _, _ := newTreeFixture()

	err := tree.DeleteRecursive(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestDeleteChildrenKeepsParent(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	_, err = tree.FindOrCreateFolder(ctx, root.ID, "sub")
	require.NoError(t, err)
	_, err = tree.CreateFile(ctx, root.ID, "doc", "pdf", domain.StorageRef{Key: "k"}, true)
	require.NoError(t, err)

	require.NoError(t, tree.DeleteChildren(ctx, root.ID))

	children, err := tree.ListChildren(ctx, root.ID, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = tree.GetFolder(ctx, root.ID)
	assert.NoError(t, err)
}

func TestCountSubtree(t *testing.T) {
	tree, _, _, _ := newTreeFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	root, err := tree.FindOrCreateFolder(ctx, ownerID, "root")
	require.NoError(t, err)
	a, err := tree.FindOrCreateFolder(ctx, root.ID, "a")
	require.NoError(t, err)
	b, err := tree.FindOrCreateFolder(ctx, a.ID, "b")
	require.NoError(t, err)
	_, err = tree.CreateFile(ctx, root.ID, "f1", "pdf", domain.StorageRef{}, true)
	require.NoError(t, err)
	_, err = tree.CreateFile(ctx, b.ID, "f2", "pdf", domain.StorageRef{}, true)
	require.NoError(t, err)

	nFiles, nFolders, err := tree.CountSubtree(ctx, root.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, nFiles)
	assert.EqualValues(t, 2, nFolders)
}
