package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/meridian/modules/core/domain/entities/deletion"
	"github.com/meridianhq/meridian/modules/core/domain/entities/document"
	"github.com/meridianhq/meridian/modules/core/infrastructure/docstore"
	"github.com/meridianhq/meridian/modules/core/infrastructure/persistence"
	"github.com/meridianhq/meridian/modules/core/services"
)

func newTestManifest(t *testing.T, data string) *deletion.Manifest {
	t.Helper()
	manifest, err := deletion.ParseManifest(data)
	require.NoError(t, err)
	return manifest
}

func newTestStore(manifest *deletion.Manifest) *docstore.MemoryStore {
	indexes := document.NewIndexRegistry()
	for _, table := range manifest.CascadeTables() {
		indexes.Register(table, manifest.IndexName(table), manifest.IndexField(table))
	}
	return docstore.NewMemoryStore(indexes)
}

func seed(t *testing.T, store document.Store, table string, doc document.Document) document.Document {
	t.Helper()
	stored, err := store.Insert(context.Background(), table, doc)
	require.NoError(t, err)
	return stored
}

// blobRecorder records deletions and optionally shares a call log with a
// recordingStore so cross-component ordering can be asserted.
type blobRecorder struct {
	deleted []string
	log     *[]string
	err     error
}

func (b *blobRecorder) Delete(ctx context.Context, key string) error {
	if b.err != nil {
		return b.err
	}
	b.deleted = append(b.deleted, key)
	if b.log != nil {
		*b.log = append(*b.log, "blob:"+key)
	}
	return nil
}

type recordingStore struct {
	document.Store
	log *[]string
}

func (s *recordingStore) Delete(ctx context.Context, table, docID string) error {
	if err := s.Store.Delete(ctx, table, docID); err != nil {
		return err
	}
	*s.log = append(*s.log, "doc:"+docID)
	return nil
}

type failingStore struct {
	document.Store
	failTable string
}

func (s *failingStore) Delete(ctx context.Context, table, docID string) error {
	if table == s.failTable {
		return fmt.Errorf("write conflict on %s", table)
	}
	return s.Store.Delete(ctx, table, docID)
}

func (s *failingStore) Update(ctx context.Context, table, docID string, patch map[string]any) error {
	if table == s.failTable {
		return fmt.Errorf("write conflict on %s", table)
	}
	return s.Store.Update(ctx, table, docID, patch)
}

const ordersCommentsManifest = `
preserve = ["deletion_logs"]

[cascade.orders]
[cascade.orders.fields]
userId = "delete"

[cascade.comments]
index_field = "authorId"
index_name = "by_author"
[cascade.comments.fields]
authorId = "anonymize"
`

func TestCascadeService_DeleteAndAnonymize(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, ordersCommentsManifest)
	store := newTestStore(manifest)
	target := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		seed(t, store, "orders", document.Document{"userId": target.String(), "total": 100 + i})
	}
	seed(t, store, "orders", document.Document{"userId": other.String(), "total": 50})
	first := seed(t, store, "comments", document.Document{"authorId": target.String(), "text": "hello"})
	second := seed(t, store, "comments", document.Document{"authorId": target.String(), "text": "world"})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Equal(t, []string{"orders", "comments"}, result.TablesProcessed)
	assert.Equal(t, 3, result.RecordsDeleted)
	assert.Equal(t, 2, result.RecordsAnonymized)
	assert.Empty(t, result.ErrorMessage)

	// The other user's order survives.
	assert.Equal(t, 1, store.Count("orders"))

	// Comments survive with the reference replaced; other fields intact.
	for _, id := range []string{first.ID(), second.ID()} {
		doc, err := store.Get(context.Background(), "comments", id)
		require.NoError(t, err)
		author, _ := doc.StringField("authorId")
		assert.Equal(t, deletion.AnonymizedValue, author)
		text, _ := doc.StringField("text")
		assert.NotEmpty(t, text)
	}
}

func TestCascadeService_Idempotent(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, ordersCommentsManifest)
	store := newTestStore(manifest)
	target := uuid.New()

	seed(t, store, "orders", document.Document{"userId": target.String()})
	seed(t, store, "comments", document.Document{"authorId": target.String()})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	opts := services.CascadeOptions{TargetUserID: target, Initiator: deletion.InitiatorSelf}

	first := svc.Execute(context.Background(), opts)
	require.True(t, first.Success)
	require.Equal(t, 1, first.RecordsDeleted)
	require.Equal(t, 1, first.RecordsAnonymized)

	second := svc.Execute(context.Background(), opts)
	require.True(t, second.Success)
	assert.Equal(t, 0, second.RecordsDeleted)
	assert.Equal(t, 0, second.RecordsAnonymized)
	assert.Empty(t, second.FilesDeleted)
}

func TestCascadeService_HaltsOnTableFailure(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.t1]
[cascade.t1.fields]
userId = "delete"

[cascade.t2]
[cascade.t2.fields]
userId = "delete"

[cascade.t3]
[cascade.t3.fields]
userId = "delete"

[cascade.t4]
[cascade.t4.fields]
userId = "delete"
`)
	store := newTestStore(manifest)
	target := uuid.New()
	for _, table := range []string{"t1", "t2", "t3", "t4"} {
		seed(t, store, table, document.Document{"userId": target.String()})
	}

	failing := &failingStore{Store: store, failTable: "t2"}
	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    failing,
	})
	opts := services.CascadeOptions{TargetUserID: target, Initiator: deletion.InitiatorSelf}

	result := svc.Execute(context.Background(), opts)
	require.False(t, result.Success)
	assert.Equal(t, []string{"t1"}, result.TablesProcessed)
	assert.Contains(t, result.ErrorMessage, "t2")
	assert.Equal(t, 1, result.RecordsDeleted)

	// t3 and t4 were never touched.
	assert.Equal(t, 1, store.Count("t3"))
	assert.Equal(t, 1, store.Count("t4"))

	// A retry against a healthy store completes what is left.
	retrySvc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	retry := retrySvc.Execute(context.Background(), opts)
	require.True(t, retry.Success)
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, retry.TablesProcessed)
	assert.Equal(t, 3, retry.RecordsDeleted)
	for _, table := range []string{"t1", "t2", "t3", "t4"} {
		assert.Equal(t, 0, store.Count(table))
	}
}

func TestCascadeService_PreservedTableSurvives(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, ordersCommentsManifest)
	store := newTestStore(manifest)
	target := uuid.New()

	kept := seed(t, store, "deletion_logs", document.Document{
		"userId": target.String(),
		"reason": "gdpr request",
	})
	seed(t, store, "orders", document.Document{"userId": target.String()})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.NotContains(t, result.TablesProcessed, "deletion_logs")
	assert.Equal(t, 1, result.RecordsDeleted)

	// The preserved record still references the target, byte for byte.
	survivor, err := store.Get(context.Background(), "deletion_logs", kept.ID())
	require.NoError(t, err)
	assert.Equal(t, kept, survivor)
}

func TestCascadeService_ShippedManifestErasesAccountRecord(t *testing.T) {
	t.Parallel()

	manifest, err := deletion.LoadManifest("../../../config/deletion.toml")
	require.NoError(t, err)

	// Every table carrying a user reference appears exactly once, the users
	// table included.
	require.NoError(t, manifest.VerifyExclusive([]string{
		"users", "orders", "comments", "uploads", "projects",
		"deletion_logs", "invoices", "system_settings",
	}))
	assert.Equal(t, "id", manifest.IndexField(persistence.UsersTable))

	store := newTestStore(manifest)
	target := uuid.New()
	seed(t, store, persistence.UsersTable, document.Document{
		"id":    target.String(),
		"email": "ada@example.com",
	})
	seed(t, store, "orders", document.Document{"userId": target.String()})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Contains(t, result.TablesProcessed, persistence.UsersTable)
	assert.Equal(t, 0, store.Count("orders"))

	// The account record itself is gone along with the linked data.
	users := persistence.NewUserRepository(store)
	exists, err := users.Exists(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCascadeService_DeleteDominatesOtherStrategies(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.notes]
[cascade.notes.fields]
userId = "delete"
editorId = "anonymize"
`)
	store := newTestStore(manifest)
	target := uuid.New()
	other := uuid.New()

	// Owned by the target: removed outright despite the anonymize field.
	owned := seed(t, store, "notes", document.Document{
		"userId":   target.String(),
		"editorId": target.String(),
	})
	// Owned by someone else: never matched by the userId index, untouched.
	edited := seed(t, store, "notes", document.Document{
		"userId":   other.String(),
		"editorId": target.String(),
	})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.RecordsDeleted)

	_, err := store.Get(context.Background(), "notes", owned.ID())
	assert.ErrorIs(t, err, document.ErrNotFound)

	survivor, err := store.Get(context.Background(), "notes", edited.ID())
	require.NoError(t, err)
	ownerField, _ := survivor.StringField("userId")
	assert.Equal(t, other.String(), ownerField)
	editorField, _ := survivor.StringField("editorId")
	assert.Equal(t, target.String(), editorField)
}

func TestCascadeService_FilesDeletedBeforeDocuments(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.uploads]
index_field = "ownerId"
index_name = "by_owner"
[cascade.uploads.fields]
ownerId = "delete"

[storage_fields]
uploads = ["filePath", "thumbnailPath"]
`)
	store := newTestStore(manifest)
	target := uuid.New()
	doc := seed(t, store, "uploads", document.Document{
		"ownerId":       target.String(),
		"filePath":      "u/1/avatar.png",
		"thumbnailPath": "u/1/avatar_thumb.png",
	})

	var callLog []string
	blobs := &blobRecorder{log: &callLog}
	recording := &recordingStore{Store: store, log: &callLog}

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    recording,
		Storage:  blobs,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID:       target,
		DeleteStorageFiles: true,
		Initiator:          deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.ElementsMatch(t, []string{"u/1/avatar.png", "u/1/avatar_thumb.png"}, result.FilesDeleted)

	require.Len(t, callLog, 3)
	assert.Equal(t, "doc:"+doc.ID(), callLog[2])
	for _, entry := range callLog[:2] {
		assert.True(t, strings.HasPrefix(entry, "blob:"), "blob deletions must precede the document deletion, got %q", entry)
	}
}

func TestCascadeService_StorageFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.uploads]
index_field = "ownerId"
index_name = "by_owner"
[cascade.uploads.fields]
ownerId = "delete"

[storage_fields]
uploads = ["filePath"]
`)
	store := newTestStore(manifest)
	target := uuid.New()
	seed(t, store, "uploads", document.Document{
		"ownerId":  target.String(),
		"filePath": "u/2/report.pdf",
	})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
		Storage:  &blobRecorder{err: fmt.Errorf("bucket unavailable")},
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID:       target,
		DeleteStorageFiles: true,
		Initiator:          deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.RecordsDeleted)
	assert.Empty(t, result.FilesDeleted)
	assert.Equal(t, 0, store.Count("uploads"))
}

func TestCascadeService_ReassignWithoutPolicyIsNoOp(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.projects]
index_field = "ownerId"
index_name = "by_owner"
[cascade.projects.fields]
ownerId = "reassign"
`)
	store := newTestStore(manifest)
	target := uuid.New()
	doc := seed(t, store, "projects", document.Document{"ownerId": target.String()})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Equal(t, 0, result.RecordsDeleted)
	assert.Equal(t, 0, result.RecordsAnonymized)

	survivor, err := store.Get(context.Background(), "projects", doc.ID())
	require.NoError(t, err)
	owner, _ := survivor.StringField("ownerId")
	assert.Equal(t, target.String(), owner)
}

type staticReassign struct {
	target uuid.UUID
}

func (p staticReassign) ReassignTarget(ctx context.Context, table, field string, previousOwner uuid.UUID) (uuid.UUID, error) {
	return p.target, nil
}

func TestCascadeService_ReassignWithPolicy(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.projects]
index_field = "ownerId"
index_name = "by_owner"
[cascade.projects.fields]
ownerId = "reassign"
`)
	store := newTestStore(manifest)
	target := uuid.New()
	successor := uuid.New()
	doc := seed(t, store, "projects", document.Document{"ownerId": target.String()})

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
		Reassign: staticReassign{target: successor},
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Equal(t, 1, result.RecordsAnonymized)

	reassigned, err := store.Get(context.Background(), "projects", doc.ID())
	require.NoError(t, err)
	owner, _ := reassigned.StringField("ownerId")
	assert.Equal(t, successor.String(), owner)
}

func TestCascadeService_LogsReason(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, ordersCommentsManifest)
	store := newTestStore(manifest)
	target := uuid.New()
	seed(t, store, "orders", document.Document{"userId": target.String()})

	logger, hook := test.NewNullLogger()
	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
		Logger:   logger,
	})
	svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
		Reason:       "gdpr request",
	})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "deletion cascade finished", entry.Message)
	assert.Equal(t, "gdpr request", entry.Data["reason"])
}

func TestCascadeService_Batching(t *testing.T) {
	t.Parallel()

	manifest := newTestManifest(t, `
[cascade.orders]
batch_size = 10
[cascade.orders.fields]
userId = "delete"
`)
	store := newTestStore(manifest)
	target := uuid.New()
	for i := 0; i < 35; i++ {
		seed(t, store, "orders", document.Document{"userId": target.String(), "n": i})
	}

	svc := services.NewCascadeService(services.CascadeServiceOptions{
		Manifest: manifest,
		Store:    store,
	})
	result := svc.Execute(context.Background(), services.CascadeOptions{
		TargetUserID: target,
		Initiator:    deletion.InitiatorSelf,
	})

	require.True(t, result.Success)
	assert.Equal(t, 35, result.RecordsDeleted)
	assert.Equal(t, 0, store.Count("orders"))
}
