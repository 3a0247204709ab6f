package database

// DefaultLocalPath is where the local fallback tier keeps its JSON file.
const DefaultLocalPath = "data/embeddings.json"
