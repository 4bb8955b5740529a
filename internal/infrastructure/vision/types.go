package vision

// Wire types of the Cloud Vision images:annotate REST API

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"` // base64
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// AnnotateResponse is the top-level images:annotate response
type AnnotateResponse struct {
	Responses []ImageResponse `json:"responses"`
}

// ImageResponse is the result for a single image
type ImageResponse struct {
	TextAnnotations []EntityAnnotation `json:"textAnnotations"`
	Error           *Status            `json:"error,omitempty"`
}

// EntityAnnotation is one detected text block or word. Saved responses from
// other tools sometimes carry "text" instead of "description".
type EntityAnnotation struct {
	Description  string        `json:"description"`
	Text         string        `json:"text,omitempty"`
	Locale       string        `json:"locale,omitempty"`
	BoundingPoly *BoundingPoly `json:"boundingPoly,omitempty"`
}

// BoundingPoly holds pixel vertices; omitted coordinates are zero
type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

// Vertex is a pixel coordinate
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Status is a per-image API error
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
