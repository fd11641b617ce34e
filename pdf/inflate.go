package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// maxDecodedSize caps decompression output (256 MB) to prevent
// unbounded allocation from hostile length fields.
const maxDecodedSize = 256 * 1024 * 1024

// DecodeStream decodes a stream's raw data according to its /Filter
// entry. Only FlateDecode (with optional TIFF/PNG predictors) is
// implemented: it is the filter every producer uses for cross-reference
// and object streams, which are the only streams the merger needs to
// look inside. Content and image streams are copied through verbatim,
// never decoded.
func DecodeStream(dict Dict, data []byte) ([]byte, error) {
	filterObj, ok := dict["Filter"]
	if !ok {
		return data, nil
	}

	var filters []string
	var params []Dict
	switch filterObj.Type {
	case ObjName:
		filters = []string{filterObj.Name}
		if pObj, ok := dict["DecodeParms"]; ok && pObj.Type == ObjDict {
			params = []Dict{pObj.Dict}
		} else {
			params = []Dict{nil}
		}
	case ObjArray:
		for _, f := range filterObj.Array {
			if f.Type == ObjName {
				filters = append(filters, f.Name)
			}
		}
		if pArr, ok := dict["DecodeParms"]; ok && pArr.Type == ObjArray {
			for _, p := range pArr.Array {
				if p != nil && p.Type == ObjDict {
					params = append(params, p.Dict)
				} else {
					params = append(params, nil)
				}
			}
		}
		for len(params) < len(filters) {
			params = append(params, nil)
		}
	default:
		return data, nil
	}

	current := data
	for i, filter := range filters {
		switch filter {
		case "FlateDecode", "Fl":
			var err error
			current, err = flateDecode(params[i], current)
			if err != nil {
				return nil, fmt.Errorf("applying filter %s: %w", filter, err)
			}
		default:
			return nil, fmt.Errorf("unsupported stream filter: %s", filter)
		}
	}
	return current, nil
}

// flateDecode decompresses zlib data and undoes an optional predictor.
func flateDecode(parms Dict, data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()

	result, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil && len(result) == 0 {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	if len(result) > maxDecodedSize {
		return nil, fmt.Errorf("decoded size exceeds %d byte limit", maxDecodedSize)
	}

	if parms == nil {
		return result, nil
	}
	predictor, ok := parms.GetInt("Predictor")
	if !ok || predictor == 1 {
		return result, nil
	}
	if predictor == 2 {
		return undoTIFFPredictor(parms, result), nil
	}
	if predictor >= 10 && predictor <= 15 {
		return undoPNGPredictor(parms, result), nil
	}
	return result, nil
}

// rowWidth computes the predictor row size in bytes from DecodeParms.
func rowWidth(parms Dict) int {
	colors, _ := parms.GetInt("Colors")
	bits, _ := parms.GetInt("BitsPerComponent")
	columns, _ := parms.GetInt("Columns")
	if colors == 0 {
		colors = 1
	}
	if bits == 0 {
		bits = 8
	}
	if columns == 0 {
		columns = 1
	}
	return int((columns*colors*bits + 7) / 8)
}

// undoTIFFPredictor reverses TIFF horizontal differencing.
func undoTIFFPredictor(parms Dict, data []byte) []byte {
	rowBytes := rowWidth(parms)
	if rowBytes == 0 {
		return data
	}
	result := make([]byte, len(data))
	for row := 0; row*rowBytes < len(data); row++ {
		start := row * rowBytes
		end := start + rowBytes
		if end > len(data) {
			end = len(data)
		}
		copy(result[start:end], data[start:end])
		for i := start + 1; i < end; i++ {
			result[i] += result[i-1]
		}
	}
	return result
}

// undoPNGPredictor reverses PNG row filters (predictors 10-15).
func undoPNGPredictor(parms Dict, data []byte) []byte {
	rowBytes := rowWidth(parms)
	stride := rowBytes + 1 // leading filter-type byte per row
	if len(data) == 0 || stride <= 1 {
		return data
	}

	numRows := len(data) / stride
	result := make([]byte, numRows*rowBytes)
	prev := make([]byte, rowBytes)

	for row := 0; row < numRows; row++ {
		src := data[row*stride : (row+1)*stride]
		filterType := src[0]
		src = src[1:]
		dst := result[row*rowBytes : (row+1)*rowBytes]

		switch filterType {
		case 0: // None
			copy(dst, src)
		case 1: // Sub
			for i := range dst {
				var a byte
				if i > 0 {
					a = dst[i-1]
				}
				dst[i] = src[i] + a
			}
		case 2: // Up
			for i := range dst {
				dst[i] = src[i] + prev[i]
			}
		case 3: // Average
			for i := range dst {
				var a byte
				if i > 0 {
					a = dst[i-1]
				}
				dst[i] = src[i] + byte((int(a)+int(prev[i]))/2)
			}
		case 4: // Paeth
			for i := range dst {
				var a, c byte
				if i > 0 {
					a = dst[i-1]
					c = prev[i-1]
				}
				dst[i] = src[i] + paeth(a, prev[i], c)
			}
		default:
			copy(dst, src)
		}
		copy(prev, dst)
	}
	return result
}

func paeth(a, b, c byte) byte {
	ia, ib, ic := int(a), int(b), int(c)
	p := ia + ib - ic
	pa, pb, pc := iabs(p-ia), iabs(p-ib), iabs(p-ic)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
