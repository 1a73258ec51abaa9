package response

import "github.com/NeuralTrust/CareGuard/pkg/version"

type VersionOutput struct {
	version.Info
	Dictionary *DictionaryOutput `json:"dictionary,omitempty"`
}
