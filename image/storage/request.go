package storage

import (
	"fmt"

	"github.com/autowp/goimagestorage/image/sampler"
)

// Request asks for a derivative of one source image, optionally with its own crop.
type Request struct {
	imageID int64
	crop    *sampler.Crop
}

func NewRequest(imageID int64, crop *sampler.Crop) (Request, error) {
	if imageID <= 0 {
		return Request{}, fmt.Errorf("%w: image id %d", ErrValidation, imageID)
	}

	if crop == nil {
		return Request{imageID: imageID}, nil
	}

	if err := crop.Validate(); err != nil {
		return Request{}, err
	}

	c := *crop

	return Request{imageID: imageID, crop: &c}, nil
}

func (r Request) ImageID() int64 {
	return r.imageID
}

func (r Request) Crop() *sampler.Crop {
	if r.crop == nil {
		return nil
	}

	c := *r.crop

	return &c
}

type requestKey struct {
	imageID int64
	crop    sampler.Crop
}

func (r Request) key() requestKey {
	key := requestKey{imageID: r.imageID}
	if r.crop != nil {
		key.crop = *r.crop
	}

	return key
}
