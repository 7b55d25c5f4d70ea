package stream

import (
	"io"
)

// Boundary separates the parts of an MJPEG response.
const Boundary = "frame"

// ContentType is the response content type of an MJPEG stream.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

var (
	partHeader  = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
	partTrailer = []byte("\r\n")
)

// WritePart writes one JPEG image as an MJPEG part:
//
//	--frame\r\nContent-Type: image/jpeg\r\n\r\n<jpeg>\r\n
func WritePart(w io.Writer, jpeg []byte) error {
	buf := make([]byte, 0, len(partHeader)+len(jpeg)+len(partTrailer))
	buf = append(buf, partHeader...)
	buf = append(buf, jpeg...)
	buf = append(buf, partTrailer...)

	_, err := w.Write(buf)
	return err
}
