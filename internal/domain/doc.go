// Package domain holds generation records and their status machine,
// carousel canvases, and the media items placed on them. Nothing here
// touches storage or HTTP.
package domain
