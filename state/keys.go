package state

import "encoding/binary"

var (
	balancePrefix     = []byte("market/balance/")
	salePrefix        = []byte("market/sale/")
	auctionPrefix     = []byte("market/auction/")
	buyOfferPrefix    = []byte("market/buyoffer/")
	bundleIndexPrefix = []byte("market/index/")
	counterPrefix     = []byte("market/counter/")
	assetPrefix       = []byte("custody/asset/")
	holdPrefix        = []byte("custody/hold/")
	collectionPrefix  = []byte("custody/collection/")
	holdIndexPrefix   = []byte("custody/index/")
)

func balanceKey(owner [20]byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(owner))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], owner[:])
	return buf
}

func listingKey(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return buf
}

func bundleIndexKey(kind string, seller [20]byte, hash [32]byte) []byte {
	buf := make([]byte, 0, len(bundleIndexPrefix)+len(kind)+1+len(seller)+len(hash))
	buf = append(buf, bundleIndexPrefix...)
	buf = append(buf, kind...)
	buf = append(buf, '/')
	buf = append(buf, seller[:]...)
	buf = append(buf, hash[:]...)
	return buf
}

func collectionKey(name string) []byte {
	buf := make([]byte, 0, len(collectionPrefix)+len(name))
	buf = append(buf, collectionPrefix...)
	buf = append(buf, name...)
	return buf
}

func holdIndexKey(from [20]byte, hash [32]byte) []byte {
	buf := make([]byte, 0, len(holdIndexPrefix)+len(from)+len(hash))
	buf = append(buf, holdIndexPrefix...)
	buf = append(buf, from[:]...)
	buf = append(buf, hash[:]...)
	return buf
}

func counterKey(namespace string) []byte {
	buf := make([]byte, 0, len(counterPrefix)+len(namespace))
	buf = append(buf, counterPrefix...)
	buf = append(buf, namespace...)
	return buf
}
