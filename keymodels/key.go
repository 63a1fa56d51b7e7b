package keymodels

import "strings"

/*
Structure holding information returned on a specific key
*/
type KeyInfo struct {
	//Key
	Key            string
	//Value stored at the key
	Value          string
	//Etcd version of the key, which is incremented when a key changes and reset to 0 when it is deleted
	Version        int64
	//Revision of the etcd store when the key was created
	CreateRevision int64
	//Revision of the etcd store when the key was last modified
	ModRevision    int64
	//Id of the lease that created the key if the key was created with a lease
	Lease          int64
}

/*
Returns whether the KeyInfo structure stores a key that was found.
If the key is not found, an empty KeyInfo structure will be returned which will be detected by this method.
*/
func (info *KeyInfo) Found() bool {
	return info.CreateRevision > 0
}

/*
Options that get passed to point reads.
*/
type GetKeyOptions struct {
	//Specifies that the value of the key at a given store revision is wanted.
	//Can be left at the default 0 value if the latest version of the key is desired.
	Revision int64
}

type KeyInfoMap map[string]KeyInfo

/*
Convert a map of key infos to a plain key to value map, stripping the given prefix from the keys.
*/
func (keys KeyInfoMap) ToValueMap(prefix string) map[string]string {
	values := make(map[string]string)
	for key, info := range keys {
		values[strings.TrimPrefix(key, prefix)] = info.Value
	}

	return values
}
