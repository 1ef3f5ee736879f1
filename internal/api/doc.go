// Package api exposes the generation lifecycle, project exports and prompt
// previews over HTTP. Handlers decode and validate requests, call the
// services, and translate domain errors into status codes and safe
// messages (see MapErrorToStatusCode).
package api
