// errors.go - fault/exception plumbing for the x86 core
//
// Faults are raised deep inside opcode handlers (a page walk, a segment
// load, a privilege check) and must unwind back to the single dispatch
// point in Step without every handler threading an error return. A typed
// panic value recovered at Step is the idiomatic way to do that in Go; it
// keeps the ~150 opcode handlers in cpu_x86_ops.go/cpu_x86_grp.go exactly
// as flat as the teacher wrote them.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "fmt"

// Exception vectors used by raiseFault callers.
const (
	vecDE = 0x00 // divide error
	vecDB = 0x01 // debug
	vecNMI = 0x02
	vecBP = 0x03
	vecOF = 0x04
	vecBR = 0x05
	vecUD = 0x06 // invalid opcode
	vecNM = 0x07
	vecDF = 0x08 // double fault
	vecTS = 0x0A
	vecNP = 0x0B // segment not present
	vecSS = 0x0C // stack fault
	vecGP = 0x0D // general protection
	vecPF = 0x0E // page fault
)

// cpuFault is panicked by any code path that detects a CPU exception and
// recovered at the top of Step, which hands it to deliverFault.
type cpuFault struct {
	Vector     byte
	ErrCode    uint32
	HasErrCode bool
	Linear     uint64 // only meaningful for vecPF
}

func (f cpuFault) String() string {
	if f.HasErrCode {
		return fmt.Sprintf("fault vector=0x%02X errcode=0x%X", f.Vector, f.ErrCode)
	}
	return fmt.Sprintf("fault vector=0x%02X", f.Vector)
}

// raiseFault unwinds the current instruction via panic/recover, delivered
// by Step's recover block.
func raiseFault(vector byte, errCode uint32) {
	panic(cpuFault{Vector: vector, ErrCode: errCode, HasErrCode: true})
}

// raiseFaultNoCode raises a fault that carries no error code (#UD, #NM...).
func raiseFaultNoCode(vector byte) {
	panic(cpuFault{Vector: vector})
}

// raisePageFault raises #PF with the packed {P,W/R,U/S,RSVD,I/D} error code
// and the faulting linear address, per §4.2.
func raisePageFault(linear uint64, errCode uint32) {
	panic(cpuFault{Vector: vecPF, ErrCode: errCode, HasErrCode: true, Linear: linear})
}
