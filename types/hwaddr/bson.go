package hwaddr

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

func (h HWAddr) MarshalBSONValue() (bsontype.Type, []byte, error) {
	textBytes, err := h.MarshalText()
	if err != nil {
		return 0, nil, err
	}

	return bson.MarshalValue(string(textBytes))
}

func (h *HWAddr) UnmarshalBSONValue(t bsontype.Type, b []byte) error {
	var s = new(string)

	if err := bson.UnmarshalValue(t, b, s); err != nil {
		return err
	}

	return h.UnmarshalText([]byte(*s))
}
