package server

// Workspace holds the analysis of every open document. It is only touched
// from the Worker goroutine.
type Workspace struct {
	docs map[string]*Document // URI → analysis
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{docs: make(map[string]*Document)}
}

// Update analyzes the new text of uri, keeping the previous tree when the
// text does not parse.
func (ws *Workspace) Update(uri, text string) *Document {
	d := Analyze(text, ws.docs[uri])
	ws.docs[uri] = d
	return d
}

// Get returns the analysis of uri, or nil when it is not open.
func (ws *Workspace) Get(uri string) *Document {
	return ws.docs[uri]
}

// Close forgets uri.
func (ws *Workspace) Close(uri string) {
	delete(ws.docs, uri)
}
