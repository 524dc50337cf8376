package embeddings

// fastEmbedModelDims gives the embedding dimension for every local model
// name SPEC_FULL.md's config accepts. Shared by the cgo FastEmbedProvider
// and the !cgo stub, and by LangchainEmbedder's dimension detection when a
// remote deployment happens to reuse one of these model names.
var fastEmbedModelDims = map[string]int{
	"BAAI/bge-small-en-v1.5": 384,
	"BAAI/bge-base-en-v1.5":  768,
	"all-MiniLM-L6-v2":       384,
}

func fastEmbedModelDimension(name string) (int, bool) {
	dim, ok := fastEmbedModelDims[name]
	return dim, ok
}
