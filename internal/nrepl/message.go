// Package nrepl implements the transport client for the nREPL
// protocol: one physical bencode-over-TCP connection carrying any
// number of logical sessions.
//
// The Client owns the socket, the read loop, and response routing;
// Sessions are the unit everything above this package operates on.
// The byte-level codec is github.com/zeebo/bencode — this package
// covers message framing, correlation, and session demultiplexing.
package nrepl

// request is one message sent to the server.  Empty optional fields
// are elided from the wire dict.
type request struct {
	Op      string `bencode:"op"`
	ID      string `bencode:"id"`
	Session string `bencode:"session,omitempty"`
	Code    string `bencode:"code,omitempty"`
}

// response is one message from the server.  nREPL responses are sparse
// dicts; absent keys decode to zero values.
type response struct {
	ID         string   `bencode:"id"`
	Session    string   `bencode:"session"`
	NewSession string   `bencode:"new-session"`
	Value      string   `bencode:"value"`
	Out        string   `bencode:"out"`
	Err        string   `bencode:"err"`
	Ex         string   `bencode:"ex"`
	Status     []string `bencode:"status"`
}

// hasStatus reports whether the response's status list contains s.
func (r *response) hasStatus(s string) bool {
	for _, v := range r.Status {
		if v == s {
			return true
		}
	}
	return false
}

// done marks the final response for a request id.
func (r *response) done() bool { return r.hasStatus("done") }
