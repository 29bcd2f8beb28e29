package vdev

import (
	"os"

	"fusionx/emu/log"
)

const sdSectorSize = 512

// SD commands, as the first byte of a command frame.
const (
	sdCmd0   = 0x40 + 0  // GO_IDLE_STATE
	sdCmd8   = 0x40 + 8  // SEND_IF_COND
	sdCmd16  = 0x40 + 16 // SET_BLOCKLEN
	sdCmd17  = 0x40 + 17 // READ_SINGLE_BLOCK
	sdCmd24  = 0x40 + 24 // WRITE_BLOCK
	sdCmd55  = 0x40 + 55 // APP_CMD
	sdCmd58  = 0x40 + 58 // READ_OCR
	sdCSMask = 0x02      // chip select in the RFS control register, active low

	// A host initializes the card with 10 dummy bytes, 7 are enough.
	sdTrainingBytes = 7
)

// sdCard emulates an SD card in SPI mode, byte by byte, backed by an image
// file. Without image the card never leaves training and the data register
// reads 0xFF.
type sdCard struct {
	path string
	img  *os.File

	training int
	ready    bool

	dataIn, dataOut uint8
	outFlag         bool

	cmd     [sdSectorSize + 3]byte
	rcv     int
	resp    []byte
	writing bool
	lba     int64
}

func (sd *sdCard) reset() {
	if sd.img != nil {
		sd.img.Close()
		sd.img = nil
	}
	sd.training, sd.ready = 0, false
	sd.dataIn, sd.dataOut, sd.outFlag = 0xFF, 0, false
	sd.rcv, sd.resp, sd.writing = 0, nil, false
}

// write latches val for the next transfer.
func (sd *sdCard) write(val uint8) {
	sd.dataOut = val
	sd.outFlag = true
}

// clock runs one 8-bit SPI transfer.
func (sd *sdCard) clock(ctrl uint8) {
	selected := ctrl&sdCSMask == 0
	if selected != sd.ready {
		return
	}

	if !sd.ready {
		sd.training++
		if sd.training < sdTrainingBytes {
			return
		}
		img, err := os.OpenFile(sd.path, os.O_RDWR, 0)
		if err != nil {
			log.ModDev.WarnZ("can't open sd card image").String("path", sd.path).Error("err", err).End()
			return
		}
		sd.img, sd.ready, sd.training = img, true, 0
		return
	}

	if (sd.rcv == 0 && sd.dataOut == 0xFF) || sd.resp != nil || !sd.outFlag {
		sd.dataIn = 0xFF
		if len(sd.resp) > 0 {
			sd.dataIn = sd.resp[0]
			sd.resp = sd.resp[1:]
			if len(sd.resp) == 0 {
				sd.resp = nil
			}
		}
		return
	}

	// Incoming data overrides any pending response.
	sd.resp = nil
	sd.outFlag = false
	sd.cmd[sd.rcv] = sd.dataOut
	sd.rcv++

	switch {
	case sd.writing && sd.rcv == sdSectorSize+3:
		// Data token, sector, CRC.
		sd.resp = []byte{0x05}
		if _, err := sd.img.WriteAt(sd.cmd[1:1+sdSectorSize], sd.lba*sdSectorSize); err != nil {
			log.ModDev.ErrorZ("sd card write").Hex64("lba", uint64(sd.lba)).Error("err", err).End()
			sd.resp[0] = 0x06
		}
		sd.rcv, sd.writing = 0, false
	case !sd.writing && sd.rcv == 6:
		sd.rcv = 0
		sd.command()
	}
}

func (sd *sdCard) command() {
	lba := int64(sd.cmd[1])<<24 | int64(sd.cmd[2])<<16 | int64(sd.cmd[3])<<8 | int64(sd.cmd[4])

	switch sd.cmd[0] {
	case sdCmd0, sdCmd16, sdCmd55:
		sd.resp = []byte{0x01}
	case sdCmd8:
		sd.resp = []byte{0x01, 0x00, 0x00, 0x01, 0xAA}
	case sdCmd58:
		sd.resp = []byte{0x00, 0x00, 0x00, 0x00}
	case sdCmd17:
		// R1, data token, sector, CRC.
		resp := make([]byte, 2+sdSectorSize+2)
		resp[1] = 0xFE
		sd.img.ReadAt(resp[2:2+sdSectorSize], lba*sdSectorSize)
		sd.resp = resp
	case sdCmd24:
		sd.lba = lba
		sd.writing = true
		sd.resp = []byte{0x00}
	default:
		log.ModDev.DebugZ("sd command").Blob("frame", sd.cmd[:6]).End()
		sd.resp = []byte{0x00}
	}
}
