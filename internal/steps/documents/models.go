package documents

// File is one file of an upload batch.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type uploadResponse struct {
	ID string `json:"id"`
}
