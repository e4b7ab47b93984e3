package vm

// Opcode identifies a Glulx instruction. Values follow the Glulx VM
// specification's numbering; the encoding of the opcode number itself
// (1/2/4 bytes depending on its top bits) is handled in dispatch.go.
type Opcode uint32

const (
	OpNop Opcode = 0x00

	OpAdd     Opcode = 0x10
	OpSub     Opcode = 0x11
	OpMul     Opcode = 0x12
	OpDiv     Opcode = 0x13
	OpMod     Opcode = 0x14
	OpNeg     Opcode = 0x15
	OpBitAnd  Opcode = 0x18
	OpBitOr   Opcode = 0x19
	OpBitXor  Opcode = 0x1A
	OpBitNot  Opcode = 0x1B
	OpShiftL  Opcode = 0x1C
	OpSShiftR Opcode = 0x1D
	OpUShiftR Opcode = 0x1E

	OpJump Opcode = 0x20
	OpJz   Opcode = 0x22
	OpJnz  Opcode = 0x23
	OpJeq  Opcode = 0x24
	OpJne  Opcode = 0x25
	OpJlt  Opcode = 0x26
	OpJge  Opcode = 0x27
	OpJgt  Opcode = 0x28
	OpJle  Opcode = 0x29
	OpJltu Opcode = 0x2A
	OpJgeu Opcode = 0x2B
	OpJgtu Opcode = 0x2C
	OpJleu Opcode = 0x2D

	OpCall     Opcode = 0x30
	OpReturn   Opcode = 0x31
	OpTailcall Opcode = 0x34

	OpCopy  Opcode = 0x40
	OpCopys Opcode = 0x41
	OpCopyb Opcode = 0x42
	OpSexs  Opcode = 0x44
	OpSexb  Opcode = 0x45

	OpAload     Opcode = 0x48
	OpAloads    Opcode = 0x49
	OpAloadb    Opcode = 0x4A
	OpAloadbit  Opcode = 0x4B
	OpAstore    Opcode = 0x4C
	OpAstores   Opcode = 0x4D
	OpAstoreb   Opcode = 0x4E
	OpAstorebit Opcode = 0x4F

	OpStkcount Opcode = 0x50
	OpStkpeek  Opcode = 0x51
	OpStkswap  Opcode = 0x52
	OpStkroll  Opcode = 0x53
	OpStkcopy  Opcode = 0x54

	OpStreamchar    Opcode = 0x70
	OpStreamnum     Opcode = 0x71
	OpStreamstr     Opcode = 0x72
	OpStreamunichar Opcode = 0x73

	OpGestalt    Opcode = 0x100
	OpDebugtrap  Opcode = 0x101
	OpGetmemsize Opcode = 0x102
	OpSetmemsize Opcode = 0x103

	OpRandom    Opcode = 0x110
	OpSetrandom Opcode = 0x111

	OpQuit        Opcode = 0x120
	OpVerify      Opcode = 0x121
	OpRestart     Opcode = 0x122
	OpSave        Opcode = 0x123
	OpRestore     Opcode = 0x124
	OpSaveundo    Opcode = 0x125
	OpRestoreundo Opcode = 0x126
	OpProtect     Opcode = 0x127

	OpGlk Opcode = 0x130

	OpGetstringtbl Opcode = 0x140
	OpSetstringtbl Opcode = 0x141
	OpGetiosys     Opcode = 0x148
	OpSetiosys     Opcode = 0x149

	OpLinearsearch Opcode = 0x150
	OpBinarysearch Opcode = 0x151
	OpLinkedsearch Opcode = 0x152

	OpCallf    Opcode = 0x160
	OpCallfi   Opcode = 0x161
	OpCallfii  Opcode = 0x162
	OpCallfiii Opcode = 0x163

	OpMzero  Opcode = 0x170
	OpMcopy  Opcode = 0x171
	OpMalloc Opcode = 0x178
	OpMfree  Opcode = 0x179

	OpAccelfunc  Opcode = 0x180
	OpAccelparam Opcode = 0x181

	OpNumtof  Opcode = 0x190
	OpFtonumz Opcode = 0x191
	OpFtonumn Opcode = 0x192
	OpCeil    Opcode = 0x198
	OpFloor   Opcode = 0x199

	OpFadd Opcode = 0x1A0
	OpFsub Opcode = 0x1A1
	OpFmul Opcode = 0x1A2
	OpFdiv Opcode = 0x1A3
	OpFmod Opcode = 0x1A4
	OpSqrt Opcode = 0x1A8
	OpExp  Opcode = 0x1A9
	OpLog  Opcode = 0x1AA
	OpPow  Opcode = 0x1AB

	OpSin   Opcode = 0x1B0
	OpCos   Opcode = 0x1B1
	OpTan   Opcode = 0x1B2
	OpAsin  Opcode = 0x1B3
	OpAcos  Opcode = 0x1B4
	OpAtan  Opcode = 0x1B5
	OpAtan2 Opcode = 0x1B6

	OpJfeq   Opcode = 0x1C0
	OpJfne   Opcode = 0x1C1
	OpJflt   Opcode = 0x1C2
	OpJfle   Opcode = 0x1C3
	OpJfgt   Opcode = 0x1C4
	OpJfge   Opcode = 0x1C5
	OpJisnan Opcode = 0x1C8
	OpJisinf Opcode = 0x1C9

	OpNumtod  Opcode = 0x1D0
	OpDtoux   Opcode = 0x1D1
	OpDtosx   Opcode = 0x1D2
	OpFtod    Opcode = 0x1D3
	OpDtof    Opcode = 0x1D4
	OpDceil   Opcode = 0x1D8
	OpDfloor  Opcode = 0x1D9
	OpDadd    Opcode = 0x1E0
	OpDsub    Opcode = 0x1E1
	OpDmul    Opcode = 0x1E2
	OpDdiv    Opcode = 0x1E3
	OpDmodr   Opcode = 0x1E4
	OpDmodq   Opcode = 0x1E5
	OpDsqrt   Opcode = 0x1E8
	OpDexp    Opcode = 0x1E9
	OpDlog    Opcode = 0x1EA
	OpDpow    Opcode = 0x1EB
	OpDsin    Opcode = 0x1F0
	OpDcos    Opcode = 0x1F1
	OpDtan    Opcode = 0x1F2
	OpDasin   Opcode = 0x1F3
	OpDacos   Opcode = 0x1F4
	OpDatan   Opcode = 0x1F5
	OpDatan2  Opcode = 0x1F6
	OpJdeq    Opcode = 0x1F8
	OpJdne    Opcode = 0x1F9
	OpJdlt    Opcode = 0x1FA
	OpJdle    Opcode = 0x1FB
	OpJdgt    Opcode = 0x1FC
	OpJdge    Opcode = 0x1FD
	OpJdisnan Opcode = 0x1FE
	OpJdisinf Opcode = 0x1FF
)

// operandForm distinguishes load from store operands in an opcode's
// operand list.
type operandForm int

const (
	formLoad operandForm = iota
	formStore
)

// operandList is the immutable per-opcode shape the decoder consults:
// how many operands, in what order, each load's or store's dereference
// width. Grounded on operand.c's fast_operandlist/lookup_operandlist.
type operandList struct {
	forms   []operandForm
	argSize uint32 // width in bytes for memory/locals dereference: 1, 2 or 4
}

func ops(argSize uint32, forms ...operandForm) operandList {
	return operandList{forms: forms, argSize: argSize}
}

var none = operandList{argSize: 4}

// operandTable maps every opcode this interpreter knows to its operand
// list. Built once; looked up by the dispatch loop for every instruction.
var operandTable = map[Opcode]operandList{
	OpNop: none,

	OpAdd: ops(4, formLoad, formLoad, formStore), OpSub: ops(4, formLoad, formLoad, formStore),
	OpMul: ops(4, formLoad, formLoad, formStore), OpDiv: ops(4, formLoad, formLoad, formStore),
	OpMod: ops(4, formLoad, formLoad, formStore), OpNeg: ops(4, formLoad, formStore),
	OpBitAnd: ops(4, formLoad, formLoad, formStore), OpBitOr: ops(4, formLoad, formLoad, formStore),
	OpBitXor: ops(4, formLoad, formLoad, formStore), OpBitNot: ops(4, formLoad, formStore),
	OpShiftL: ops(4, formLoad, formLoad, formStore), OpSShiftR: ops(4, formLoad, formLoad, formStore),
	OpUShiftR: ops(4, formLoad, formLoad, formStore),

	OpJump: ops(4, formLoad),
	OpJz:   ops(4, formLoad, formLoad), OpJnz: ops(4, formLoad, formLoad),
	OpJeq: ops(4, formLoad, formLoad, formLoad), OpJne: ops(4, formLoad, formLoad, formLoad),
	OpJlt: ops(4, formLoad, formLoad, formLoad), OpJge: ops(4, formLoad, formLoad, formLoad),
	OpJgt: ops(4, formLoad, formLoad, formLoad), OpJle: ops(4, formLoad, formLoad, formLoad),
	OpJltu: ops(4, formLoad, formLoad, formLoad), OpJgeu: ops(4, formLoad, formLoad, formLoad),
	OpJgtu: ops(4, formLoad, formLoad, formLoad), OpJleu: ops(4, formLoad, formLoad, formLoad),

	OpCall: ops(4, formLoad, formLoad, formStore), OpReturn: ops(4, formLoad),
	OpTailcall: ops(4, formLoad, formLoad),

	OpCopy: ops(4, formLoad, formStore), OpCopys: ops(2, formLoad, formStore), OpCopyb: ops(1, formLoad, formStore),
	OpSexs: ops(4, formLoad, formStore), OpSexb: ops(4, formLoad, formStore),

	// NOTE: every aload/astore variant uses argSize 4 for its own operands
	// (arraybase/index/value are always full words); the array ELEMENT
	// width (4/2/1 bytes) is opcode-intrinsic and applied explicitly in
	// dispatch.go, not through the generic operand-dereference width.
	// Grounded exactly on operand.c's lookup_operandlist, which maps all
	// four aload*/astore* opcodes to list_LLS/list_LLL at size 4.
	OpAload: ops(4, formLoad, formLoad, formStore), OpAloads: ops(4, formLoad, formLoad, formStore),
	OpAloadb: ops(4, formLoad, formLoad, formStore), OpAloadbit: ops(4, formLoad, formLoad, formStore),
	OpAstore: ops(4, formLoad, formLoad, formLoad), OpAstores: ops(4, formLoad, formLoad, formLoad),
	OpAstoreb: ops(4, formLoad, formLoad, formLoad), OpAstorebit: ops(4, formLoad, formLoad, formLoad),

	OpStkcount: ops(4, formStore), OpStkpeek: ops(4, formLoad, formStore),
	OpStkswap: none, OpStkroll: ops(4, formLoad, formLoad), OpStkcopy: ops(4, formLoad),

	OpStreamchar: ops(4, formLoad), OpStreamnum: ops(4, formLoad),
	OpStreamstr: ops(4, formLoad), OpStreamunichar: ops(4, formLoad),

	OpGestalt: ops(4, formLoad, formLoad, formStore), OpDebugtrap: ops(4, formLoad),
	OpGetmemsize: ops(4, formStore), OpSetmemsize: ops(4, formLoad, formStore),

	OpRandom: ops(4, formLoad, formStore), OpSetrandom: ops(4, formLoad),

	OpQuit: none, OpVerify: ops(4, formStore), OpRestart: none,
	OpSave: ops(4, formLoad, formStore), OpRestore: ops(4, formLoad, formStore),
	OpSaveundo: ops(4, formStore), OpRestoreundo: ops(4, formStore),
	OpProtect: ops(4, formLoad, formLoad),

	OpGlk: ops(4, formLoad, formLoad, formStore),

	OpGetstringtbl: ops(4, formStore), OpSetstringtbl: ops(4, formLoad),
	OpGetiosys: ops(4, formStore, formStore), OpSetiosys: ops(4, formLoad, formLoad),

	OpLinearsearch: ops(4, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formStore),
	OpBinarysearch: ops(4, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formStore),
	OpLinkedsearch: ops(4, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formStore),

	OpCallf: ops(4, formLoad, formStore), OpCallfi: ops(4, formLoad, formLoad, formStore),
	OpCallfii: ops(4, formLoad, formLoad, formLoad, formStore),
	OpCallfiii: ops(4, formLoad, formLoad, formLoad, formLoad, formStore),

	OpMzero: ops(4, formLoad, formLoad), OpMcopy: ops(4, formLoad, formLoad, formLoad),
	OpMalloc: ops(4, formLoad, formStore), OpMfree: ops(4, formLoad),

	OpAccelfunc: ops(4, formLoad, formLoad), OpAccelparam: ops(4, formLoad, formLoad),

	OpNumtof: ops(4, formLoad, formStore), OpFtonumz: ops(4, formLoad, formStore),
	OpFtonumn: ops(4, formLoad, formStore), OpCeil: ops(4, formLoad, formStore), OpFloor: ops(4, formLoad, formStore),

	OpFadd: ops(4, formLoad, formLoad, formStore), OpFsub: ops(4, formLoad, formLoad, formStore),
	OpFmul: ops(4, formLoad, formLoad, formStore), OpFdiv: ops(4, formLoad, formLoad, formStore),
	OpFmod: ops(4, formLoad, formLoad, formStore, formStore),
	OpSqrt: ops(4, formLoad, formStore), OpExp: ops(4, formLoad, formStore), OpLog: ops(4, formLoad, formStore),
	OpPow: ops(4, formLoad, formLoad, formStore),

	OpSin: ops(4, formLoad, formStore), OpCos: ops(4, formLoad, formStore), OpTan: ops(4, formLoad, formStore),
	OpAsin: ops(4, formLoad, formStore), OpAcos: ops(4, formLoad, formStore), OpAtan: ops(4, formLoad, formStore),
	OpAtan2: ops(4, formLoad, formLoad, formStore),

	OpJfeq: ops(4, formLoad, formLoad, formLoad, formLoad), OpJfne: ops(4, formLoad, formLoad, formLoad, formLoad),
	OpJflt: ops(4, formLoad, formLoad, formLoad), OpJfle: ops(4, formLoad, formLoad, formLoad),
	OpJfgt: ops(4, formLoad, formLoad, formLoad), OpJfge: ops(4, formLoad, formLoad, formLoad),
	OpJisnan: ops(4, formLoad, formLoad), OpJisinf: ops(4, formLoad, formLoad),

	OpNumtod: ops(4, formLoad, formStore, formStore),
	OpDtoux:  ops(4, formLoad, formLoad, formStore), OpDtosx: ops(4, formLoad, formLoad, formStore),
	OpFtod: ops(4, formLoad, formStore, formStore), OpDtof: ops(4, formLoad, formLoad, formStore),
	OpDceil: ops(4, formLoad, formLoad, formStore, formStore), OpDfloor: ops(4, formLoad, formLoad, formStore, formStore),
	OpDadd: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDsub: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDmul: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDdiv: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDmodr: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDmodq: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDsqrt: ops(4, formLoad, formLoad, formStore, formStore), OpDexp: ops(4, formLoad, formLoad, formStore, formStore),
	OpDlog: ops(4, formLoad, formLoad, formStore, formStore),
	OpDpow: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpDsin: ops(4, formLoad, formLoad, formStore, formStore), OpDcos: ops(4, formLoad, formLoad, formStore, formStore),
	OpDtan: ops(4, formLoad, formLoad, formStore, formStore), OpDasin: ops(4, formLoad, formLoad, formStore, formStore),
	OpDacos: ops(4, formLoad, formLoad, formStore, formStore), OpDatan: ops(4, formLoad, formLoad, formStore, formStore),
	OpDatan2: ops(4, formLoad, formLoad, formLoad, formLoad, formStore, formStore),
	OpJdeq:   ops(4, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad),
	OpJdne:   ops(4, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad, formLoad),
	OpJdlt:   ops(4, formLoad, formLoad, formLoad, formLoad, formLoad),
	OpJdle:   ops(4, formLoad, formLoad, formLoad, formLoad, formLoad),
	OpJdgt:   ops(4, formLoad, formLoad, formLoad, formLoad, formLoad),
	OpJdge:   ops(4, formLoad, formLoad, formLoad, formLoad, formLoad),
	OpJdisnan: ops(4, formLoad, formLoad, formLoad), OpJdisinf: ops(4, formLoad, formLoad, formLoad),
}
