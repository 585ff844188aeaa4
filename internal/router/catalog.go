package router

import "sort"

// HuggingFaceModel is an entry of the curated HuggingFace router catalogue.
type HuggingFaceModel struct {
	Key            string `json:"key"`
	ModelID        string `json:"model_id"`
	Name           string `json:"name"`
	SupportsArabic bool   `json:"supports_arabic"`
}

var huggingFaceModels = map[string]HuggingFaceModel{
	"llama3.1-8b": {Key: "llama3.1-8b", ModelID: "meta-llama/Llama-3.1-8B-Instruct", Name: "Llama 3.1 8B", SupportsArabic: true},
	"qwen2.5-72b": {Key: "qwen2.5-72b", ModelID: "Qwen/Qwen2.5-72B-Instruct", Name: "Qwen 2.5 72B", SupportsArabic: true},
	"llama3.2-3b": {Key: "llama3.2-3b", ModelID: "meta-llama/Llama-3.2-3B-Instruct", Name: "Llama 3.2 3B", SupportsArabic: true},
	"deepseek-r1": {Key: "deepseek-r1", ModelID: "deepseek-ai/DeepSeek-R1-Distill-Qwen-32B", Name: "DeepSeek R1 32B", SupportsArabic: true},
	"gemma2-9b":   {Key: "gemma2-9b", ModelID: "google/gemma-2-9b-it", Name: "Gemma 2 9B", SupportsArabic: true},
}

// HuggingFaceModels returns the catalogue sorted by key.
func HuggingFaceModels() []HuggingFaceModel {
	out := make([]HuggingFaceModel, 0, len(huggingFaceModels))
	for _, m := range huggingFaceModels {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// IsHuggingFaceModel reports whether key names a catalogue entry.
func IsHuggingFaceModel(key string) bool {
	_, ok := huggingFaceModels[key]
	return ok
}

// ResolveHuggingFaceModel maps a catalogue key to its hub model id. Anything
// else is assumed to already be a hub id.
func ResolveHuggingFaceModel(key string) string {
	if m, ok := huggingFaceModels[key]; ok {
		return m.ModelID
	}
	return key
}
