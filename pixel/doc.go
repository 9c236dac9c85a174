// Package pixel implements the pixel format used by scan-out buffers.
package pixel
