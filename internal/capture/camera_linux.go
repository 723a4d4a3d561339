//go:build linux && (amd64 || arm64)

package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/kozaktomas/facelens/internal/logging"
	"golang.org/x/sys/unix"
)

// V4L2 constants for 64-bit kernels.
const (
	v4l2BufTypeVideoCapture = 1
	v4l2PixFmtMJPEG         = 0x47504a4d
	v4l2FieldNone           = 1
	v4l2MemoryMmap          = 1
	vidiocSFmt              = 0xc0d05605
	vidiocReqbufs           = 0xc0145608
	vidiocQuerybuf          = 0xc0585609
	vidiocQbuf              = 0xc058560f
	vidiocDqbuf             = 0xc0585611
	vidiocStreamon          = 0x40045612
	vidiocStreamoff         = 0x40045613
)

type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

type v4l2Format struct {
	typ uint32
	_   uint32
	pix v4l2PixFormat
	_   [152]byte
}

type v4l2Requestbuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint32
}

type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         uint32
	timestamp unix.Timeval
	timecode  v4l2Timecode
	sequence  uint32
	memory    uint32
	m         uint64 // offset for mmap buffers
	length    uint32
	reserved2 uint32
	reserved  uint32
	_         uint32
}

var errCameraClosed = errors.New("camera is closed")

// Camera streams MJPEG frames from a V4L2 device and keeps the latest one.
type Camera struct {
	device string
	width  uint32
	height uint32

	fd   int
	data []byte

	mu       sync.RWMutex
	frame    []byte
	pumpErr  error
	ready    chan struct{}
	stop     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// OpenCamera opens the device and starts streaming.
func OpenCamera(device string, width, height int) (*Camera, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, classifyOpenError(device, err)
	}

	c := &Camera{
		device:   device,
		width:    uint32(width),
		height:   uint32(height),
		fd:       fd,
		ready:    make(chan struct{}),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}

	if err := c.start(); err != nil {
		if c.data != nil {
			unix.Munmap(c.data)
		}
		unix.Close(fd)
		return nil, classifyOpenError(device, err)
	}

	logging.Info(logging.Fields{"device": device, "width": width, "height": height}, "camera opened")

	go c.framePump()
	return c, nil
}

func (c *Camera) start() error {
	format := v4l2Format{
		typ: v4l2BufTypeVideoCapture,
		pix: v4l2PixFormat{
			width:       c.width,
			height:      c.height,
			pixelformat: v4l2PixFmtMJPEG,
			field:       v4l2FieldNone,
		},
	}
	if err := ioctl(c.fd, vidiocSFmt, unsafe.Pointer(&format)); err != nil {
		return fmt.Errorf("failed to set format: %w", err)
	}

	req := v4l2Requestbuffers{
		count:  1,
		typ:    v4l2BufTypeVideoCapture,
		memory: v4l2MemoryMmap,
	}
	if err := ioctl(c.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("failed to request buffer: %w", err)
	}

	buf := v4l2Buffer{typ: v4l2BufTypeVideoCapture, memory: v4l2MemoryMmap}
	if err := ioctl(c.fd, vidiocQuerybuf, unsafe.Pointer(&buf)); err != nil {
		return fmt.Errorf("failed to query buffer: %w", err)
	}

	data, err := unix.Mmap(c.fd, int64(uint32(buf.m)), int(buf.length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to map buffer: %w", err)
	}
	c.data = data

	qbuf := v4l2Buffer{typ: v4l2BufTypeVideoCapture, memory: v4l2MemoryMmap}
	if err := ioctl(c.fd, vidiocQbuf, unsafe.Pointer(&qbuf)); err != nil {
		return fmt.Errorf("failed to enqueue buffer: %w", err)
	}

	typ := uint32(v4l2BufTypeVideoCapture)
	if err := ioctl(c.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	return nil
}

func (c *Camera) framePump() {
	defer close(c.finished)

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		fds := unix.FdSet{}
		fds.Set(c.fd)
		tv := unix.Timeval{Usec: 200000}
		n, err := unix.Select(c.fd+1, &fds, nil, nil, &tv)
		if errors.Is(err, unix.EINTR) || n == 0 {
			continue
		}
		if err != nil {
			c.fail(fmt.Errorf("select failed: %w", err))
			return
		}

		qbuf := v4l2Buffer{typ: v4l2BufTypeVideoCapture, memory: v4l2MemoryMmap}
		if err := ioctl(c.fd, vidiocDqbuf, unsafe.Pointer(&qbuf)); err != nil {
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			c.fail(fmt.Errorf("failed to dequeue buffer: %w", err))
			return
		}

		n = min(int(qbuf.bytesused), len(c.data))
		frame := make([]byte, n)
		copy(frame, c.data[:n])

		c.mu.Lock()
		first := c.frame == nil
		c.frame = frame
		c.mu.Unlock()
		if first {
			close(c.ready)
		}

		if err := ioctl(c.fd, vidiocQbuf, unsafe.Pointer(&qbuf)); err != nil {
			c.fail(fmt.Errorf("failed to enqueue buffer: %w", err))
			return
		}
	}
}

func (c *Camera) fail(err error) {
	logging.Error(logging.Fields{"device": c.device, "error": err}, "camera stream stopped")
	c.mu.Lock()
	c.pumpErr = err
	c.mu.Unlock()
}

// Frame returns the most recent frame, waiting for the first one if needed.
func (c *Camera) Frame(ctx context.Context) ([]byte, error) {
	select {
	case <-c.ready:
	case <-c.finished:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("no frame from %s", c.device)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pumpErr != nil {
		return nil, c.pumpErr
	}
	if c.frame == nil {
		return nil, errCameraClosed
	}
	return c.frame, nil
}

// Err returns the error that stopped the frame pump, or nil while streaming.
func (c *Camera) Err() error {
	select {
	case <-c.finished:
	default:
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pumpErr != nil {
		return c.pumpErr
	}
	return errCameraClosed
}

// Close stops streaming and releases the device.
func (c *Camera) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		<-c.finished

		typ := uint32(v4l2BufTypeVideoCapture)
		if serr := ioctl(c.fd, vidiocStreamoff, unsafe.Pointer(&typ)); serr != nil {
			logging.Warn(logging.Fields{"device": c.device, "error": serr}, "failed to stop stream")
		}
		if merr := unix.Munmap(c.data); merr != nil {
			err = merr
		}
		if cerr := unix.Close(c.fd); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
