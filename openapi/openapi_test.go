package openapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestDescribe(t *testing.T) {
	doc := Describe(DefaultInfo("1.2.3"))

	assert.Check(t, cmp.Equal(doc.OpenAPI, "3.0.3"))
	assert.Check(t, cmp.Equal(doc.Info.Title, "rfapi"))
	assert.Check(t, cmp.Equal(doc.Info.Version, "1.2.3"))
	assert.Check(t, cmp.Equal(doc.Info.Contact.Name, "sakti"))

	ops := map[string]string{}
	for path, item := range doc.Paths {
		if item.Get != nil {
			ops[item.Get.OperationID] = "GET " + path
		}
		if item.Put != nil {
			ops[item.Put.OperationID] = "PUT " + path
		}
	}
	assert.Check(t, cmp.DeepEqual(ops, map[string]string{
		"index":       "GET /",
		"docs":        "GET /openapi.json",
		"get_counter": "GET /counter",
		"put_counter": "PUT /counter",
	}))

	cv := doc.Components.Schemas["CounterValue"]
	assert.Assert(t, cv != nil)
	assert.Check(t, cmp.DeepEqual(cv.Required, []string{"counter"}))
	assert.Check(t, cmp.Equal(cv.Properties["counter"].Format, "uint64"))
}

func TestDefaultInfo_NoVersion(t *testing.T) {
	assert.Check(t, cmp.Equal(DefaultInfo("").Version, "dev"))
}

func TestDocument_JSON(t *testing.T) {
	b, err := Describe(DefaultInfo("1.2.3")).JSON()
	assert.Assert(t, err)

	var m map[string]interface{}
	assert.Assert(t, json.Unmarshal(b, &m))
	assert.Check(t, cmp.Equal(m["openapi"], "3.0.3"))

	paths, ok := m["paths"].(map[string]interface{})
	assert.Assert(t, ok)
	counter, ok := paths["/counter"].(map[string]interface{})
	assert.Assert(t, ok)
	put, ok := counter["put"].(map[string]interface{})
	assert.Assert(t, ok)
	assert.Check(t, cmp.Equal(put["operationId"], "put_counter"))
	assert.Check(t, cmp.Contains(put["requestBody"], "content"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")

	err := WriteFile(path, Describe(DefaultInfo("1.2.3")))
	assert.Assert(t, err)

	b, err := os.ReadFile(path)
	assert.Assert(t, err)
	var doc Document
	assert.Assert(t, json.Unmarshal(b, &doc))
	assert.Check(t, cmp.Equal(doc.Info.Title, "rfapi"))
	assert.Check(t, doc.Paths["/counter"].Put != nil)
}

func TestWriteFile_BadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "docs.json"), Describe(DefaultInfo("")))
	assert.Check(t, cmp.ErrorContains(err, "failed to write api description"))
}

func TestWriteFile_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	assert.Assert(t, os.WriteFile(path, []byte(strings.Repeat("x", 100_000)), 0o600))

	assert.Assert(t, WriteFile(path, Describe(DefaultInfo("2.0.0"))))

	b, err := os.ReadFile(path)
	assert.Assert(t, err)
	var doc Document
	assert.Assert(t, json.Unmarshal(b, &doc), "stale content must be truncated")
	assert.Check(t, cmp.Equal(doc.Info.Version, "2.0.0"))
}
