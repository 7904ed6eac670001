package extract

import (
	"encoding/json"

	"github.com/insightqa/insightqa/internal/domain"
)

// extractJSON re-indents the payload so chunk boundaries fall on
// readable lines rather than a single minified run.
func extractJSON(data []byte) (string, error) {
	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", domain.ErrCorruptFile.WithDetail("invalid JSON").Wrap(err)
	}
	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", domain.ErrCorruptFile.Wrap(err)
	}
	return string(pretty), nil
}
