package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/document"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "documents.json"), zap.NewNop())
}

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		LastCheck: "2024-06-01T08:00:00+08:00",
		Documents: map[string][]document.Document{
			"13": {
				{
					Title:       "大型飞机公共航空运输承运人运行合格审定规则",
					URL:         "https://www.caac.gov.cn/XXGK/XXGK/MHGZ/t20240115_1.html",
					Category:    "民航规章",
					CategoryID:  "13",
					DocNumber:   "CCAR-121-R8",
					OfficeUnit:  "飞行标准司",
					SignDate:    "2024-01-10",
					PublishDate: "2024-01-15",
					Validity:    "有效",
					PDFURL:      "https://www.caac.gov.cn/pdf/ccar121.pdf",
					HasPDF:      true,
				},
			},
			"14": {
				{
					Title:       "关于加强无人驾驶航空器管理的通知",
					URL:         "https://www.caac.gov.cn/XXGK/XXGK/GFXWJ/t20240201_2.html",
					Category:    "规范性文件",
					CategoryID:  "14",
					DocNumber:   "民航规〔2024〕12号",
					PublishDate: "2024-02-01",
					Validity:    "有效",
				},
			},
		},
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := testStore(t)

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Documents)
	assert.Empty(t, snap.LastCheck)
}

func TestStore_RoundTrip(t *testing.T) {
	store := testStore(t)
	original := sampleSnapshot()

	require.NoError(t, store.Save(original))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, original.LastCheck, loaded.LastCheck)
	assert.Equal(t, original.Documents, loaded.Documents)
}

func TestStore_SavePreservesNonASCII(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(sampleSnapshot()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	// Written verbatim, not as \uXXXX escapes.
	assert.Contains(t, string(data), "民航规章")
	assert.Contains(t, string(data), "飞行标准司")
	assert.NotContains(t, string(data), `\u6c11`)
}

func TestStore_SaveWritesLegacyKeys(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(sampleSnapshot()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Contains(t, payload, "documents")
	assert.Contains(t, payload, "regulations")
	assert.Contains(t, payload, "normatives")
	assert.Contains(t, payload, "standards")

	var regulations []map[string]any
	require.NoError(t, json.Unmarshal(payload["regulations"], &regulations))
	require.Len(t, regulations, 1)
	assert.Equal(t, "regulation", regulations[0]["doc_type"])
}

func TestStore_LoadLegacyLayout(t *testing.T) {
	store := testStore(t)
	legacy := `{
  "last_check": "2023-12-01T00:00:00",
  "regulations": [
    {"title": "旧规章", "url": "https://www.caac.gov.cn/old/1.html", "validity": "有效"}
  ],
  "standards": [
    {"title": "旧标准", "url": "https://www.caac.gov.cn/old/2.html"}
  ]
}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(legacy), 0644))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "2023-12-01T00:00:00", snap.LastCheck)
	require.Len(t, snap.Documents["13"], 1)
	require.Len(t, snap.Documents["15"], 1)
	assert.Equal(t, "旧规章", snap.Documents["13"][0].Title)
}

func TestStore_CorruptFileQuarantined(t *testing.T) {
	store := testStore(t)
	corrupt := []byte(`{"last_check": "2024-01-01", "documents": {truncated`)
	require.NoError(t, os.WriteFile(store.Path(), corrupt, 0644))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Documents)

	matches, err := filepath.Glob(store.Path() + ".corrupted.*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	preserved, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, corrupt, preserved)
}

func TestStore_RepeatedCorruptionKeepsAllCopies(t *testing.T) {
	store := testStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(store.Path(), []byte("not json "+string(rune('a'+i))), 0644))
		_, err := store.Load()
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(store.Path() + ".corrupted.*")
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestStore_FailedSaveLeavesOriginalUntouched(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "documents.json")
	store := NewStore(path, zap.NewNop())
	require.NoError(t, store.Save(sampleSnapshot()))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Make the directory unwritable so the temp file cannot be created.
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })

	err = store.Save(NewSnapshot())
	require.Error(t, err)
	var perr *PersistError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)

	require.NoError(t, os.Chmod(dir, 0755))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "original snapshot must be byte-identical after a failed save")

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files must be cleaned up")
}

func TestStore_DownloadIndexRoundTrip(t *testing.T) {
	store := testStore(t)

	records := map[string]IndexEntry{
		"https://www.caac.gov.cn/doc/1.html": {
			RelativePath: "downloads/[民航规章]CCAR-121规则.pdf",
			UpdatedAt:    "2024-06-01T08:00:00Z",
		},
	}
	require.NoError(t, store.SaveIndex(records))
	assert.Equal(t, records, store.LoadIndex())
}

func TestStore_DownloadIndexMissingOrInvalid(t *testing.T) {
	store := testStore(t)
	assert.Empty(t, store.LoadIndex())

	require.NoError(t, os.WriteFile(store.IndexPath(), []byte("garbage"), 0644))
	assert.Empty(t, store.LoadIndex())
}
