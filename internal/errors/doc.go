// Package errors provides coded, actionable errors for printdesk.
//
// Every error carries a short code (e.g. "E301") registered in a central
// table. The table supplies the category, a one-line message, an optional
// longer explanation and the HTTP status used when the error reaches an API
// client.
//
// # Error Categories
//
//   - config: configuration loading and validation
//   - route: navigation and page component loading
//   - storage: uploaded file handling
//   - print: printing and document opening
//   - vnc: saved VNC connection handling
//   - proxy: the WebSocket to TCP proxy
//   - build: front-end build invocations
//
// # Usage
//
//	err := errors.New("E301").
//	    WithDetail("report.pdf").
//	    Wrap(os.ErrNotExist)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E301: File not found
//	//
//	//   report.pdf
//
// HTTP handlers use Status to pick the response code:
//
//	http.Error(w, err.Message, err.Status())
package errors
