package tspsi

// Well-known PIDs and table IDs, per ISO/IEC 13818-1 and ETSI EN 300
// 468, as used by original_source/src/table.c's init_table_ops.
const (
	PIDPAT uint16 = 0x0000
	PIDCAT uint16 = 0x0001
	PIDNIT uint16 = 0x0010
	PIDSDT uint16 = 0x0011
	PIDBAT uint16 = 0x0011
	PIDEIT uint16 = 0x0012
	PIDTDT uint16 = 0x0014
	PIDTOT uint16 = 0x0014
)

const (
	TableIDPAT       uint8 = 0x00
	TableIDCAT       uint8 = 0x01
	TableIDPMT       uint8 = 0x02
	TableIDNITActual uint8 = 0x40
	TableIDNITOther  uint8 = 0x41
	TableIDSDTActual uint8 = 0x42
	TableIDSDTOther  uint8 = 0x46
	TableIDBAT       uint8 = 0x4A
	TableIDEITFirst  uint8 = 0x4E
	TableIDEITLast   uint8 = 0x6F
	TableIDTDT       uint8 = 0x70
	TableIDTOT       uint8 = 0x73
)
