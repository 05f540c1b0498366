package msgactor

type ActorMessage interface {
	amsg()
}

func (o *LManRecordTx) amsg()           {}
func (o *LManRecordRx) amsg()           {}
func (o *LManDiscoveryResponse) amsg()  {}
func (o *LManSetupResult) amsg()        {}
func (o *LManTeardownAck) amsg()        {}
func (o *LManPeerCapabilities) amsg()   {}
func (o *LManRSSIUpdate) amsg()         {}
func (o *LManDiscoveryTimeout) amsg()   {}
func (o *LManIdleExpired) amsg()        {}
func (o *LManScanRequest) amsg()        {}
func (o *LManScanDone) amsg()           {}
func (o *LManConcurrencyChanged) amsg() {}
func (o *LManCoexChanged) amsg()        {}
func (o *LManAntennaSwitch) amsg()      {}
func (o *LManAssociationLost) amsg()    {}
func (o *LManSetLowThroughput) amsg()   {}
func (o *LManSetMode) amsg()            {}
func (o *LManSetThresholds) amsg()      {}
func (o *LManForce) amsg()              {}
func (o *LManUnforce) amsg()            {}
func (o *LManConnect) amsg()            {}
func (o *LManDisconnect) amsg()         {}
func (o *LManAddPeer) amsg()            {}
func (o *LManRemovePeer) amsg()         {}
func (o *LManListPeers) amsg()          {}
func (o *NotifyStateChange) amsg()      {}
