package service_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func validDraftPayload() map[string]interface{} {
	return map[string]interface{}{
		"access": map[string]interface{}{
			"record": "public",
			"files":  "public",
		},
		"files": map[string]interface{}{
			"enabled": false,
		},
		"metadata": map[string]interface{}{
			"creators": []interface{}{
				map[string]interface{}{
					"person_or_org": map[string]interface{}{
						"family_name": "Brown",
						"given_name":  "Troy",
						"type":        "personal",
					},
				},
			},
			"publication_date": "2020-06-01",
			"publisher":        "Acme Inc",
			"resource_type":    map[string]interface{}{"id": "image-photo"},
			"title":            "A Romans story",
		},
	}
}

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
